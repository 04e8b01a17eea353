package dynamo

// Attribute names used in key conditions and update expressions.
const (
	fieldAccountID      = "account_id"
	fieldEmail          = "email"
	fieldPasswordHash   = "password_hash"
	fieldUpdatedAt      = "updated_at"
	fieldCreatedAt      = "created_at"
	fieldCreatedAtNanos = "created_at_ns"
	fieldOTPID          = "otp_id"
	fieldSubjectID      = "subject_id"
	fieldPurpose        = "purpose"
	fieldCode           = "code"
	fieldRegistrationID = "registration_id"
	fieldPredictionID   = "prediction_id"
	fieldResult         = "result"
	fieldVisitorID      = "visitor_id"
	fieldSessionID      = "session_id"
)

// Secondary index names.
const (
	indexEmail            = "email-index"
	indexSubjectPurpose   = "subject_id-purpose-index"
	indexAccountCreatedAt = "account_id-created_at-index"
	indexSession          = "session_id-index"
)
