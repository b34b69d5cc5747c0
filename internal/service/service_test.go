package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aanand-mishra/school-api/internal/apperr"
	"github.com/aanand-mishra/school-api/internal/storage"
	"github.com/aanand-mishra/school-api/internal/storage/storagetest"
	"github.com/aanand-mishra/school-api/internal/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// stepClock returns t0, t0+1m, t0+2m, ... on successive calls.
func stepClock(t0 time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		now := t0.Add(time.Duration(n) * time.Minute)
		n++
		return now
	}
}

var t0 = time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

func newStudents(t *testing.T) (*Students, *storagetest.Memory, *storagetest.Handles) {
	t.Helper()
	mem := storagetest.NewMemory()
	handles := &storagetest.Handles{Store: mem}
	svc := NewStudents(handles,
		WithClock(stepClock(t0)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return svc, mem, handles
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	svc, mem, _ := newStudents(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, types.StudentInput{Name: "Ana", Age: 10, Address: "1 Elm St"})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ana", created.Name)
	assert.Equal(t, 10, created.Age)
	assert.Equal(t, "1 Elm St", created.Address)
	require.NotNil(t, created.CreatedAt)
	require.NotNil(t, created.UpdatedAt)
	assert.True(t, created.CreatedAt.Equal(*created.UpdatedAt), "create stamps both timestamps identically")
	assert.Nil(t, created.Grade)
	assert.Equal(t, 1, mem.Len("students"))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateStoresOnlyPresentOptionalFields(t *testing.T) {
	svc, mem, _ := newStudents(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, types.StudentInput{
		Name: "Ben", Age: 12, Address: "2 Oak Ave",
		Grade:       ptr("7B"),
		ParentEmail: ptr("parent@example.com"),
	})
	require.NoError(t, err)

	doc, err := mem.Get(ctx, "students", created.ID)
	require.NoError(t, err)

	assert.Equal(t, "7B", doc.Data["grade"], "pointer fields are stored as values")
	assert.Equal(t, "parent@example.com", doc.Data["parentEmail"])
	assert.NotContains(t, doc.Data, "parentName")
	assert.NotContains(t, doc.Data, "notes")
	assert.NotContains(t, doc.Data, "id")

	require.NotNil(t, created.Grade)
	assert.Equal(t, "7B", *created.Grade)
	assert.Nil(t, created.ParentName)
}

func TestList(t *testing.T) {
	svc, _, _ := newStudents(t)
	ctx := context.Background()

	empty, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, name := range []string{"Ana", "Ben", "Cleo"} {
		_, err := svc.Create(ctx, types.StudentInput{Name: name, Age: 10, Address: "1 Elm St"})
		require.NoError(t, err)
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(all))
	for _, s := range all {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"Ana", "Ben", "Cleo"}, names)
}

func TestUpdate(t *testing.T) {
	svc, _, _ := newStudents(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, types.StudentInput{Name: "Ana", Age: 10, Address: "1 Elm St"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, types.StudentPatch{Age: ptr(11), Notes: ptr("moved up")})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Ana", updated.Name, "untouched fields survive")
	assert.Equal(t, 11, updated.Age)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "moved up", *updated.Notes)

	assert.True(t, updated.CreatedAt.Equal(*created.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(*created.UpdatedAt), "update refreshes updatedAt")
}

func TestUpdateMissing(t *testing.T) {
	svc, mem, _ := newStudents(t)

	_, err := svc.Update(context.Background(), "missing-1", types.StudentPatch{Name: ptr("Zed")})
	require.Error(t, err)

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
	assert.Contains(t, e.Message, "missing-1")
	assert.Equal(t, "Student with ID missing-1 not found", e.Message)

	assert.Zero(t, mem.Calls("update"), "the store must not be written")
	assert.Zero(t, mem.Len("students"))
}

func TestGetAndDeleteMissing(t *testing.T) {
	svc, mem, _ := newStudents(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = svc.Delete(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Zero(t, mem.Calls("delete"))
}

func TestDelete(t *testing.T) {
	svc, mem, _ := newStudents(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, types.StudentInput{Name: "Ana", Age: 10, Address: "1 Elm St"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Zero(t, mem.Len("students"))

	_, err = svc.Get(ctx, created.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestStoreFailuresAreHidden(t *testing.T) {
	svc, mem, handles := newStudents(t)
	mem.Fail("list", errors.New("rpc error: code = Internal desc = secret detail"))

	_, err := svc.List(context.Background())
	require.Error(t, err)

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindStorage, e.Kind)
	assert.Equal(t, "Failed to get students", e.Message)
	assert.NotContains(t, e.Message, "secret")
	assert.Zero(t, handles.Invalidated(), "ordinary failures keep the handle")
}

func TestUnavailableStoreInvalidatesHandle(t *testing.T) {
	svc, mem, handles := newStudents(t)
	mem.Fail("get", errors.Wrap(storage.ErrUnavailable, "token revoked"))

	_, err := svc.Get(context.Background(), "any")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStorage))
	assert.Equal(t, "Failed to get student", mustMessage(t, err))
	require.Len(t, handles.Stale(), 1)
	assert.Same(t, mem, handles.Stale()[0], "the handle that failed is the one reported")
}

func mustMessage(t *testing.T, err error) string {
	t.Helper()
	e, ok := apperr.As(err)
	require.True(t, ok)
	return e.Message
}

func TestRecordRemovedDuringWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("update", func(t *testing.T) {
		svc, mem, handles := newStudents(t)
		created, err := svc.Create(ctx, types.StudentInput{Name: "Ana", Age: 10, Address: "1 Elm St"})
		require.NoError(t, err)

		// The lookup sees the record, the write does not.
		mem.Fail("update", storage.ErrNotFound)

		_, err = svc.Update(ctx, created.ID, types.StudentPatch{Grade: ptr("6")})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		assert.Equal(t, "Student with ID "+created.ID+" not found", mustMessage(t, err))
		assert.Zero(t, handles.Invalidated())
	})

	t.Run("delete", func(t *testing.T) {
		svc, mem, _ := newStudents(t)
		created, err := svc.Create(ctx, types.StudentInput{Name: "Ana", Age: 10, Address: "1 Elm St"})
		require.NoError(t, err)

		mem.Fail("delete", storage.ErrNotFound)

		err = svc.Delete(ctx, created.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestFailureMessages(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	svc, mem, _ := newStudents(t)
	mem.Fail("create", boom)
	_, err := svc.Create(ctx, types.StudentInput{Name: "Ana", Age: 10, Address: "1 Elm St"})
	assert.Equal(t, "Failed to create student", mustMessage(t, err))

	teachers := NewTeachers(&storagetest.Handles{Store: mem})
	mem.Fail("list", boom)
	_, err = teachers.List(ctx)
	assert.Equal(t, "Failed to get teachers", mustMessage(t, err))
}

func TestHandleErrorsPassThrough(t *testing.T) {
	svc, mem, handles := newStudents(t)
	handles.Err = apperr.Connection(4, errors.New("unreachable"))

	_, err := svc.Create(context.Background(), types.StudentInput{Name: "Ana", Age: 10, Address: "1 Elm St"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConnection))
	assert.Zero(t, mem.Calls("create"))
}

func TestTeachers(t *testing.T) {
	mem := storagetest.NewMemory()
	svc := NewTeachers(&storagetest.Handles{Store: mem}, WithClock(stepClock(t0)))
	ctx := context.Background()

	created, err := svc.Create(ctx, types.TeacherInput{
		Name: "Mrs Rao", Age: 41, Address: "9 School Rd",
		Subject:           ptr("Maths"),
		YearsOfExperience: ptr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len("teachers"))
	assert.Zero(t, mem.Len("students"))

	require.NotNil(t, created.YearsOfExperience)
	assert.Equal(t, 0, *created.YearsOfExperience, "a present zero is kept")

	_, err = svc.Get(ctx, "missing")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Teacher with ID missing not found", e.Message)
}

func TestDecodeStoredShapes(t *testing.T) {
	// Documents read back from SQLite carry json.Number and RFC 3339 strings.
	doc := storage.Document{
		ID: "abc",
		Data: map[string]any{
			"name":      "Ana",
			"age":       json.Number("10"),
			"address":   "1 Elm St",
			"grade":     nil,
			"createdAt": "2024-09-01T08:00:00Z",
			"updatedAt": "2024-09-01T08:05:00.5Z",
			"legacy":    true,
		},
	}

	rec, err := decode[types.Student](doc)
	require.NoError(t, err)

	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, 10, rec.Age)
	assert.Nil(t, rec.Grade)
	require.NotNil(t, rec.CreatedAt)
	assert.True(t, rec.CreatedAt.Equal(t0))
	require.NotNil(t, rec.UpdatedAt)
	assert.True(t, rec.UpdatedAt.Equal(t0.Add(5*time.Minute+500*time.Millisecond)))

	// Firestore hands back int64 and time.Time.
	doc.Data["age"] = int64(12)
	doc.Data["createdAt"] = t0
	rec, err = decode[types.Student](doc)
	require.NoError(t, err)
	assert.Equal(t, 12, rec.Age)
	assert.True(t, rec.CreatedAt.Equal(t0))
}

func TestEncodePatch(t *testing.T) {
	fields, err := encode(types.TeacherPatch{Phone: ptr("555-0100"), YearsOfExperience: ptr(3)})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"phone": "555-0100", "yearsOfExperience": 3}, fields)
}
