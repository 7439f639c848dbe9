package validators

import "go.mongodb.org/mongo-driver/bson"

var SessionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"user_id", "username", "role", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"user_id":    bson.M{"bsonType": "string"},
			"username":   bson.M{"bsonType": "string"},
			"role":       bson.M{"enum": []string{"admin", "user"}},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
