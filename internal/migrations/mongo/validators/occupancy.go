package validators

import "go.mongodb.org/mongo-driver/bson"

var OccupancyValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"check_ins", "activity_log"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id": bson.M{"bsonType": "string"},
			"check_ins": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"id", "user", "people", "timestamp"},
					"properties": bson.M{
						"id":        bson.M{"bsonType": "string"},
						"user":      bson.M{"bsonType": "string"},
						"people":    bson.M{"bsonType": "int", "minimum": 1},
						"timestamp": bson.M{"bsonType": "date"},
					},
				},
			},
			"reservation": bson.M{
				"bsonType": []string{"object", "null"},
			},
			"activity_log": bson.M{
				"bsonType": "array",
			},
		},
	},
}

var MarkerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"additionalProperties": true,
		"properties": bson.M{
			"_id": bson.M{"bsonType": "string"},
			"day": bson.M{"bsonType": "string"},
		},
	},
}
