package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"username", "pin", "role"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":      bson.M{"bsonType": "string"},
			"username": bson.M{"bsonType": "string", "minLength": 2, "maxLength": 50},
			"pin":      bson.M{"bsonType": "string", "pattern": "^[0-9]{4}$"},
			"role":     bson.M{"enum": []string{"admin", "user"}},
		},
	},
}
