// Package service turns validated payloads into document store operations
// and stored documents back into records.
//
// Service is generic over the record type R, its create payload C and its
// partial update payload U; Students and Teachers are the two
// instantiations the API serves. Every operation first takes the shared
// handle from a HandleSource, so the store connection is established on
// first use and reused afterwards.
package service

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/aanand-mishra/school-api/internal/apperr"
	"github.com/aanand-mishra/school-api/internal/storage"
	"github.com/aanand-mishra/school-api/internal/types"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"

	// docTag is the struct tag naming document fields.
	docTag = "doc"
)

// HandleSource hands out the shared store handle. *connection.Cache
// implements it.
type HandleSource interface {
	Get(ctx context.Context) (storage.Store, error)
	// Invalidate reports that stale no longer works.
	Invalidate(stale storage.Store)
}

// Service performs CRUD on one collection.
type Service[R, C, U any] struct {
	handles HandleSource
	// collection doubles as the plural resource name, e.g. "students".
	collection string
	// label is the singular resource name, e.g. "student".
	label string
	now   func() time.Time
	log   *slog.Logger
}

// Students is the service behind /api/students.
type Students = Service[types.Student, types.StudentInput, types.StudentPatch]

// Teachers is the service behind /api/teachers.
type Teachers = Service[types.Teacher, types.TeacherInput, types.TeacherPatch]

// Option customises a Service.
type Option func(*options)

type options struct {
	now func() time.Time
	log *slog.Logger
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// New returns a Service for collection. label is the singular resource
// name used in messages.
func New[R, C, U any](handles HandleSource, collection, label string, opts ...Option) *Service[R, C, U] {
	o := options{now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service[R, C, U]{
		handles:    handles,
		collection: collection,
		label:      label,
		now:        o.now,
		log:        o.log.With(slog.String("collection", collection)),
	}
}

// NewStudents returns the students service.
func NewStudents(handles HandleSource, opts ...Option) *Students {
	return New[types.Student, types.StudentInput, types.StudentPatch](handles, "students", "student", opts...)
}

// NewTeachers returns the teachers service.
func NewTeachers(handles HandleSource, opts ...Option) *Teachers {
	return New[types.Teacher, types.TeacherInput, types.TeacherPatch](handles, "teachers", "teacher", opts...)
}

// Create stores input with equal created and updated timestamps and
// returns the stored record.
func (s *Service[R, C, U]) Create(ctx context.Context, input C) (R, error) {
	var zero R

	fields, err := encode(input)
	if err != nil {
		return zero, s.fail("create", "", nil, err)
	}
	now := s.now().UTC()
	fields[fieldCreatedAt] = now
	fields[fieldUpdatedAt] = now

	store, err := s.handles.Get(ctx)
	if err != nil {
		return zero, s.unavailable("create", err)
	}

	id, err := store.Create(ctx, s.collection, fields)
	if err != nil {
		return zero, s.fail("create", "", store, err)
	}

	doc, err := store.Get(ctx, s.collection, id)
	if err != nil {
		return zero, s.fail("create", id, store, err)
	}

	rec, err := decode[R](doc)
	if err != nil {
		return zero, s.fail("create", id, nil, err)
	}
	return rec, nil
}

// List returns every record of the collection, in no particular order.
func (s *Service[R, C, U]) List(ctx context.Context) ([]R, error) {
	store, err := s.handles.Get(ctx)
	if err != nil {
		return nil, s.unavailable("list", err)
	}

	docs, err := store.List(ctx, s.collection)
	if err != nil {
		return nil, s.fail("list", "", store, err)
	}

	records := make([]R, 0, len(docs))
	for _, doc := range docs {
		rec, err := decode[R](doc)
		if err != nil {
			return nil, s.fail("list", doc.ID, nil, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get returns one record or a not-found error naming id.
func (s *Service[R, C, U]) Get(ctx context.Context, id string) (R, error) {
	var zero R

	store, err := s.handles.Get(ctx)
	if err != nil {
		return zero, s.unavailable("get", err)
	}

	doc, err := s.lookup(ctx, store, "get", id)
	if err != nil {
		return zero, err
	}

	rec, err := decode[R](doc)
	if err != nil {
		return zero, s.fail("get", id, nil, err)
	}
	return rec, nil
}

// Update merges the fields present in patch into an existing record,
// refreshes its updated timestamp and returns the stored result.
func (s *Service[R, C, U]) Update(ctx context.Context, id string, patch U) (R, error) {
	var zero R

	fields, err := encode(patch)
	if err != nil {
		return zero, s.fail("update", id, nil, err)
	}
	fields[fieldUpdatedAt] = s.now().UTC()

	store, err := s.handles.Get(ctx)
	if err != nil {
		return zero, s.unavailable("update", err)
	}

	if _, err := s.lookup(ctx, store, "update", id); err != nil {
		return zero, err
	}

	// The record may vanish between the lookup and the write.
	if err := store.Update(ctx, s.collection, id, fields); err != nil {
		return zero, s.storeErr("update", id, store, err)
	}

	doc, err := store.Get(ctx, s.collection, id)
	if err != nil {
		return zero, s.storeErr("update", id, store, err)
	}

	rec, err := decode[R](doc)
	if err != nil {
		return zero, s.fail("update", id, nil, err)
	}
	return rec, nil
}

// Delete removes an existing record.
func (s *Service[R, C, U]) Delete(ctx context.Context, id string) error {
	store, err := s.handles.Get(ctx)
	if err != nil {
		return s.unavailable("delete", err)
	}

	if _, err := s.lookup(ctx, store, "delete", id); err != nil {
		return err
	}

	if err := store.Delete(ctx, s.collection, id); err != nil {
		return s.storeErr("delete", id, store, err)
	}
	return nil
}

// lookup is the read-before-write existence check.
func (s *Service[R, C, U]) lookup(ctx context.Context, store storage.Store, op, id string) (storage.Document, error) {
	doc, err := store.Get(ctx, s.collection, id)
	if err != nil {
		return storage.Document{}, s.storeErr(op, id, store, err)
	}
	return doc, nil
}

// storeErr maps a missing document to a not-found error naming id and
// everything else to fail.
func (s *Service[R, C, U]) storeErr(op, id string, store storage.Store, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(s.title(), id)
	}
	return s.fail(op, id, store, err)
}

// unavailable handles a failure to obtain the handle itself. Tagged
// errors (configuration, connection) pass through unchanged.
func (s *Service[R, C, U]) unavailable(op string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return s.fail(op, "", nil, err)
}

// fail logs err and replaces it with a generic storage error. When err
// means store is dead, store is reported to the handle source. store may
// be nil for failures that did not come from the store.
func (s *Service[R, C, U]) fail(op, id string, store storage.Store, err error) error {
	s.log.Error("document store operation failed",
		slog.String("op", op),
		slog.String("id", id),
		slog.String("error", err.Error()))

	if store != nil && errors.Is(err, storage.ErrUnavailable) {
		s.handles.Invalidate(store)
	}

	return apperr.Storage(s.failure(op), err)
}

// failure is the client-facing message for op, e.g. "Failed to create
// student" or, for a list, "Failed to get students".
func (s *Service[R, C, U]) failure(op string) string {
	if op == "list" {
		return "Failed to get " + s.collection
	}
	return "Failed to " + op + " " + s.label
}

// title is the capitalised label, e.g. "Student".
func (s *Service[R, C, U]) title() string {
	if s.label == "" {
		return ""
	}
	return strings.ToUpper(s.label[:1]) + s.label[1:]
}

// encode turns a payload into the document fields it sets. Nil optional
// fields are left out, so a patch only touches what it names.
func encode(payload any) (map[string]any, error) {
	raw := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: docTag,
		Result:  &raw,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode: new decoder")
	}
	if err := dec.Decode(payload); err != nil {
		return nil, errors.Wrap(err, "encode")
	}

	// Present optional fields arrive as pointers; store their values.
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				continue
			}
			v = rv.Elem().Interface()
		}
		fields[k] = v
	}
	return fields, nil
}

// decode maps a stored document onto R. Timestamps may arrive as
// time.Time (Firestore) or RFC 3339 strings (SQLite), numbers as int64 or
// json.Number.
func decode[R any](doc storage.Document) (R, error) {
	var rec R

	data := make(map[string]any, len(doc.Data)+1)
	for k, v := range doc.Data {
		data[k] = v
	}
	data["id"] = doc.ID

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          docTag,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:           &rec,
	})
	if err != nil {
		return rec, errors.Wrap(err, "decode: new decoder")
	}
	if err := dec.Decode(data); err != nil {
		return rec, errors.Wrapf(err, "decode document %s", doc.ID)
	}
	return rec, nil
}
