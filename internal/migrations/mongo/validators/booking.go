package validators

import "go.mongodb.org/mongo-driver/bson"

// BookingValidator guards the offline cache. Ids are strings, not
// ObjectIds: server-assigned ids and "local-" prefixed offline ids share
// the same field. Legacy status tokens from older server data are still
// accepted so a cache snapshot taken before the rename keeps loading.
var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"user_id",
			"station_id",
			"start_time",
			"end_time",
			"status",
			"vehicle_type",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"station_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"station_name": bson.M{
				"bsonType": "string",
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"enum": []string{
					"pending",
					"confirmed",
					"completed",
					"cancelled",
					"approved",
					"rejected",
				},
			},

			"vehicle_type": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"total_cost": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"qr_token": bson.M{
				"bsonType": "string",
			},

			"unsynced": bson.M{
				"bsonType": "bool",
			},

			"sync_error": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
