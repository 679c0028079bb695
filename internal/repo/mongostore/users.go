package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/usergate/internal/domain/user"
	"github.com/geocoder89/usergate/internal/observability"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// userDoc mirrors the documents already in the collection; "password" holds the bcrypt hash.
type userDoc struct {
	ID        bson.ObjectID `bson:"_id"`
	Name      string        `bson:"name"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	Role      string        `bson:"role,omitempty"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func (d userDoc) toDomain() user.User {
	return user.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         user.NormalizeRole(d.Role),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type UsersRepo struct {
	db   *mongo.Database
	coll *mongo.Collection
	prom *observability.Prom
}

func NewUsersRepo(db *mongo.Database, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, coll: db.Collection(usersCollection), prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var docs []userDoc

	err := r.observe("users.list", func() error {
		cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))

		if err != nil {
			return err
		}

		return cur.All(ctx, &docs)
	})

	if err != nil {
		return nil, err
	}

	out := make([]user.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}

	return out, nil
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M) (user.User, error) {
	var d userDoc

	err := r.observe(op, func() error {
		err := r.coll.FindOne(ctx, filter).Decode(&d)

		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.ErrNotFound
		}

		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return d.toDomain(), nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	oid, err := bson.ObjectIDFromHex(id)

	if err != nil {
		return user.User{}, user.ErrNotFound
	}

	return r.findOne(ctx, "users.get_by_id", bson.M{"_id": oid})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email", bson.M{"email": email})
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	d := userDoc{
		ID:        bson.NewObjectID(),
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}

	err := r.observe("users.create", func() error {
		_, err := r.coll.InsertOne(ctx, d)
		return err
	})

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return d.toDomain(), nil
}

// Update sets the mutable fields only; createdAt stays as inserted.
func (r *UsersRepo) Update(ctx context.Context, u user.User) (user.User, error) {
	oid, err := bson.ObjectIDFromHex(u.ID)

	if err != nil {
		return user.User{}, user.ErrNotFound
	}

	set := bson.M{
		"name":      u.Name,
		"email":     u.Email,
		"password":  u.PasswordHash,
		"role":      string(u.Role),
		"updatedAt": u.UpdatedAt,
	}

	var d userDoc

	err = r.observe("users.update", func() error {
		err := r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&d)

		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.ErrNotFound
		}

		return err
	})

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return d.toDomain(), nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)

	if err != nil {
		return user.ErrNotFound
	}

	var deleted int64

	err = r.observe("users.delete", func() error {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})

		if err != nil {
			return err
		}

		deleted = res.DeletedCount
		return nil
	})

	if err != nil {
		return err
	}

	if deleted == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}
