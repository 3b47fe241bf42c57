package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/model"
)

const accountCollection = "accounts"

type accountMongoRepository struct {
	db        *mongo.Database
	opTimeout time.Duration
}

func NewAccountMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
	opTimeout time.Duration,
) AccountRepository {
	collection := db.Collection(accountCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone.number", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "reset_password_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create account indexes")
	}

	return &accountMongoRepository{db: db, opTimeout: opTimeout}
}

func (r *accountMongoRepository) CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	result, err := r.db.Collection(accountCollection).InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrAccountAlreadyExists
		}

		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		account.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return account, nil
}

func (r *accountMongoRepository) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *accountMongoRepository) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *accountMongoRepository) GetAccountByPhone(ctx context.Context, phoneNumber string) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"phone.number": phoneNumber})
}

func (r *accountMongoRepository) GetAccountByResetToken(ctx context.Context, resetToken string) (*model.Account, error) {
	if resetToken == "" {
		return nil, ErrAccountNotFound
	}

	return r.findOne(ctx, bson.M{"reset_password_token": resetToken})
}

func (r *accountMongoRepository) UpdateAccount(
	ctx context.Context,
	id string,
	params UpdateAccountParams,
) (*model.Account, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	return r.findOneAndUpdate(ctx, bson.M{"_id": objectID}, params)
}

func (r *accountMongoRepository) DeleteAccount(ctx context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrAccountNotFound
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result, err := r.db.Collection(accountCollection).DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return ErrAccountNotFound
	}

	return nil
}

func (r *accountMongoRepository) ConsumeOTP(
	ctx context.Context,
	id, code string,
	now time.Time,
	params UpdateAccountParams,
) (*model.Account, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	params.OTP = nil
	params.ClearOTP = true

	filter := bson.M{
		"_id":            objectID,
		"otp.code":       code,
		"otp.expires_at": bson.M{"$gt": now},
	}

	return r.findOneAndUpdate(ctx, filter, params)
}

func (r *accountMongoRepository) ConsumeResetToken(
	ctx context.Context,
	resetToken string,
	params UpdateAccountParams,
) (*model.Account, error) {
	if resetToken == "" {
		return nil, ErrAccountNotFound
	}

	params.ResetPasswordToken = nil
	params.ClearResetPasswordToken = true

	filter := bson.M{
		"reset_password_token": resetToken,
		"is_active":            true,
	}

	return r.findOneAndUpdate(ctx, filter, params)
}

func (r *accountMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.Collection(accountCollection).FindOne(ctx, filter)
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}

		return nil, result.Err()
	}

	var account model.Account
	if err := result.Decode(&account); err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountMongoRepository) findOneAndUpdate(
	ctx context.Context,
	filter bson.M,
	params UpdateAccountParams,
) (*model.Account, error) {
	update, err := buildUpdate(params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.Collection(accountCollection).FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		if mongo.IsDuplicateKeyError(result.Err()) {
			return nil, ErrAccountAlreadyExists
		}

		return nil, result.Err()
	}

	var account model.Account
	if err := result.Decode(&account); err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountMongoRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, r.opTimeout)
}

// buildUpdate translates params into a $set/$unset update document.
func buildUpdate(params UpdateAccountParams) (bson.M, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	setMap := bson.M{}
	unsetMap := bson.M{}

	if params.PasswordHash != nil {
		setMap["password_hash"] = *params.PasswordHash
	}
	if params.Active != nil {
		setMap["is_active"] = *params.Active
	}
	if params.PhoneVerified != nil {
		setMap["phone.is_verified"] = *params.PhoneVerified
	}
	if params.SessionToken != nil {
		setMap["session_token"] = *params.SessionToken
	}
	if params.ClearSessionToken {
		unsetMap["session_token"] = ""
	}
	if params.OTP != nil {
		setMap["otp"] = params.OTP
	}
	if params.ClearOTP {
		unsetMap["otp"] = ""
	}
	if params.ResetPasswordToken != nil {
		setMap["reset_password_token"] = *params.ResetPasswordToken
	}
	if params.ClearResetPasswordToken {
		unsetMap["reset_password_token"] = ""
	}

	setMap["updated_at"] = time.Now()

	update := bson.M{"$set": setMap}
	if len(unsetMap) > 0 {
		update["$unset"] = unsetMap
	}

	return update, nil
}
