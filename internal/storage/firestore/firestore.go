// Package firestore implements storage.Store on Cloud Firestore through the
// Firebase Admin SDK.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/aanand-mishra/school-api/internal/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// emulatorHostEnv is read by the Firestore client itself.
const emulatorHostEnv = "FIRESTORE_EMULATOR_HOST"

const tokenURI = "https://oauth2.googleapis.com/token"

// Credentials is the service-account material needed to open an app.
// PrivateKey must already contain real line breaks.
type Credentials struct {
	ProjectID     string
	PrivateKey    string
	ClientEmail   string
	DatabaseURL   string
	StorageBucket string
	EmulatorHost  string
}

// serviceAccount is the subset of the Google service-account JSON key file
// the credential loader needs.
type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// Firestore wraps a live *firestore.Client.
type Firestore struct {
	Client *firestore.Client
}

var _ storage.Store = (*Firestore)(nil)

// Open builds the Firebase app from creds and returns its Firestore client.
// No request is sent here; use Probe to verify the connection.
func Open(ctx context.Context, creds Credentials) (*Firestore, error) {
	if creds.EmulatorHost != "" {
		if err := os.Setenv(emulatorHostEnv, creds.EmulatorHost); err != nil {
			return nil, errors.Wrap(err, "set emulator host")
		}
	}

	key, err := json.Marshal(serviceAccount{
		Type:        "service_account",
		ProjectID:   creds.ProjectID,
		PrivateKey:  creds.PrivateKey,
		ClientEmail: creds.ClientEmail,
		TokenURI:    tokenURI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode service account")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     creds.ProjectID,
		DatabaseURL:   creds.DatabaseURL,
		StorageBucket: creds.StorageBucket,
	}, option.WithCredentialsJSON(key))
	if err != nil {
		return nil, errors.Wrap(err, "initialize firebase app")
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "open firestore client")
	}

	return &Firestore{Client: client}, nil
}

func (f *Firestore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := f.Client.Collection(collection).Add(ctx, fields)
	if err != nil {
		return "", translate(err, "add to %s", collection)
	}
	return ref.ID, nil
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	ref := f.Client.Collection(collection).Doc(id)
	if ref == nil {
		// Doc returns nil for ids that cannot name a document.
		return storage.Document{}, storage.ErrNotFound
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return storage.Document{}, translate(err, "get %s/%s", collection, id)
	}
	if !snap.Exists() {
		return storage.Document{}, storage.ErrNotFound
	}

	return storage.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (f *Firestore) List(ctx context.Context, collection string) ([]storage.Document, error) {
	snaps, err := f.Client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, translate(err, "list %s", collection)
	}

	docs := make([]storage.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, storage.Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

// Update fails with ErrNotFound when the document does not exist; it never
// creates one.
func (f *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	ref := f.Client.Collection(collection).Doc(id)
	if ref == nil {
		return storage.ErrNotFound
	}

	if _, err := ref.Update(ctx, updates(fields)); err != nil {
		return translate(err, "update %s/%s", collection, id)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	ref := f.Client.Collection(collection).Doc(id)
	if ref == nil {
		return storage.ErrNotFound
	}

	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return translate(err, "delete %s/%s", collection, id)
	}
	return nil
}

// updates turns fields into top-level field updates, ordered by path.
func updates(fields map[string]any) []firestore.Update {
	paths := make([]string, 0, len(fields))
	for k := range fields {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	ups := make([]firestore.Update, 0, len(paths))
	for _, p := range paths {
		ups = append(ups, firestore.Update{FieldPath: firestore.FieldPath{p}, Value: fields[p]})
	}
	return ups
}

// Probe fetches at most limit documents from collection. Any failure is
// reported as unavailable: a probe has no other way to fail.
func (f *Firestore) Probe(ctx context.Context, collection string, limit int) error {
	it := f.Client.Collection(collection).Limit(limit).Documents(ctx)
	defer it.Stop()

	for {
		_, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: probe %s: %v", storage.ErrUnavailable, collection, err)
		}
	}
}

func (f *Firestore) Close() error {
	if f == nil || f.Client == nil {
		return nil
	}
	return f.Client.Close()
}

// translate maps gRPC status codes onto the storage sentinels.
func translate(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	switch status.Code(err) {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.Unavailable, codes.Unauthenticated, codes.PermissionDenied, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s: %v", storage.ErrUnavailable, msg, err)
	default:
		return errors.Wrap(err, msg)
	}
}
