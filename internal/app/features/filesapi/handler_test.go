package filesapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	filestore "github.com/dalemusser/stratafiles/internal/app/store/files"
	jobstore "github.com/dalemusser/stratafiles/internal/app/store/jobs"
	tokenstore "github.com/dalemusser/stratafiles/internal/app/store/tokens"
	"github.com/dalemusser/stratafiles/internal/app/system/gate"
	"github.com/dalemusser/stratafiles/internal/app/system/thumbnails"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"github.com/dalemusser/stratafiles/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type testEnv struct {
	db      *mongo.Database
	router  http.Handler
	files   *filestore.Store
	jobs    *jobstore.Store
	blobs   storage.Store
	ownerTk string
	otherTk string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)

	blobs, err := storage.NewLocal(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "/blobs",
	})
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	files := filestore.New(db)
	jobs := jobstore.New(db)
	g := gate.New(tokenstore.New(db, 0))

	h := NewHandler(files, jobs, blobs, g, zap.NewNop())

	_, ownerTk := testutil.CreateTestSession(t, db, "owner@example.com", "pw-owner")
	_, otherTk := testutil.CreateTestSession(t, db, "other@example.com", "pw-other")

	return &testEnv{
		db:      db,
		router:  Routes(h),
		files:   files,
		jobs:    jobs,
		blobs:   blobs,
		ownerTk: ownerTk,
		otherTk: otherTk,
	}
}

// do sends a request through the router. A non-empty token goes into X-Token.
func (e *testEnv) do(method, target, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("X-Token", token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeVM(t *testing.T, rec *httptest.ResponseRecorder) FileVM {
	t.Helper()
	var vm FileVM
	if err := json.Unmarshal(rec.Body.Bytes(), &vm); err != nil {
		t.Fatalf("response is not a file record: %v (body %s)", err, rec.Body.String())
	}
	return vm
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not an error body: %v (body %s)", err, rec.Body.String())
	}
	return body["error"]
}

func TestUpload_Validation(t *testing.T) {
	e := newTestEnv(t)

	t.Run("missing token", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/", "", map[string]any{"name": "a", "type": "folder"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	tests := []struct {
		name    string
		payload map[string]any
		wantMsg string
	}{
		{"missing name", map[string]any{"type": "file", "data": "aGVsbG8="}, "Missing name"},
		{"missing type", map[string]any{"name": "a.txt", "data": "aGVsbG8="}, "Missing type"},
		{"unknown type", map[string]any{"name": "a.txt", "type": "video", "data": "aGVsbG8="}, "Missing type"},
		{"missing data", map[string]any{"name": "a.txt", "type": "file"}, "Missing data"},
		{"malformed parent id", map[string]any{"name": "a.txt", "type": "file", "data": "aGVsbG8=", "parentId": "zz"}, "Parent not found"},
		{"absent parent", map[string]any{"name": "a.txt", "type": "file", "data": "aGVsbG8=", "parentId": "aaaaaaaaaaaaaaaaaaaaaaaa"}, "Parent not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodPost, "/", e.ownerTk, tt.payload)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if got := errorMessage(t, rec); got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	t.Run("file as parent", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
			"name": "plain.txt", "type": "file", "data": "aGVsbG8=",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("setup upload status = %d, want 201", rec.Code)
		}
		fileID := decodeVM(t, rec).ID

		rec = e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
			"name": "b.txt", "type": "file", "data": "aGVsbG8=", "parentId": fileID,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if got := errorMessage(t, rec); got != "Parent is not a folder" {
			t.Errorf("error = %q, want Parent is not a folder", got)
		}
	})

	t.Run("undecodable data", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
			"name": "a.txt", "type": "file", "data": "not base64!!!",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestUpload_Folder(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "documents", "type": "folder", "parentId": "0",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	vm := decodeVM(t, rec)
	if vm.Name != "documents" || vm.Type != models.TypeFolder {
		t.Errorf("record = %q/%q, want documents/folder", vm.Name, vm.Type)
	}
	if vm.ParentID != "0" {
		t.Errorf("parentId = %q, want 0", vm.ParentID)
	}
	if vm.IsPublic {
		t.Error("isPublic = true, want default false")
	}
	if strings.Contains(rec.Body.String(), "localPath") || strings.Contains(rec.Body.String(), "local_path") {
		t.Error("response leaks the storage path")
	}
}

func TestUpload_FileStoresContent(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "hello.txt", "type": "file", "data": "aGVsbG8=",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	vm := decodeVM(t, rec)

	// The stored blob holds the decoded bytes
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := mustObjectID(t, vm.ID)
	record, err := e.files.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	reader, err := e.blobs.Get(ctx, record.LocalPath)
	if err != nil {
		t.Fatalf("blob not stored: %v", err)
	}
	defer reader.Close()
	content, _ := io.ReadAll(reader)
	if string(content) != "hello" {
		t.Errorf("stored content = %q, want hello", content)
	}

	// Plain files never enqueue thumbnail work
	pending, err := e.jobs.CountByStatus(ctx, thumbnails.QueueName, jobstore.StatusPending)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if pending != 0 {
		t.Errorf("pending thumbnail jobs = %d, want 0", pending)
	}
}

func TestUpload_ImageEnqueuesThumbnails(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "photo.png", "type": "image", "data": "aGVsbG8=",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	vm := decodeVM(t, rec)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	pending, err := e.jobs.CountByStatus(ctx, thumbnails.QueueName, jobstore.StatusPending)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if pending != 1 {
		t.Fatalf("pending thumbnail jobs = %d, want 1", pending)
	}

	job, err := e.jobs.ClaimNext(ctx, thumbnails.QueueName, "test-worker")
	if err != nil || job == nil {
		t.Fatalf("ClaimNext() = %v, %v", job, err)
	}
	if job.JobType != thumbnails.JobType {
		t.Errorf("job type = %q, want %q", job.JobType, thumbnails.JobType)
	}
	if job.Payload["file_id"] != vm.ID {
		t.Errorf("payload file_id = %v, want %s", job.Payload["file_id"], vm.ID)
	}
}

func TestShow_Visibility(t *testing.T) {
	e := newTestEnv(t)

	priv := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "secret.txt", "type": "file", "data": "aGVsbG8=",
	}))
	pub := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "open.txt", "type": "file", "data": "aGVsbG8=", "isPublic": true,
	}))

	t.Run("owner sees private", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+priv.ID, e.ownerTk, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("other user gets 404 for private", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+priv.ID, e.otherTk, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("anonymous gets 404 for private, not 401", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+priv.ID, "", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("stale token reads as anonymous", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+pub.ID, "expired-or-bogus", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("anonymous sees public", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+pub.ID, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("malformed id is 404", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/not-an-id", e.ownerTk, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestIndex_PaginationAndFiltering(t *testing.T) {
	e := newTestEnv(t)

	folder := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "box", "type": "folder",
	}))

	// 25 private children; the other user may see none of them
	for i := 0; i < 25; i++ {
		rec := e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
			"name": fmt.Sprintf("doc_%02d.txt", i), "type": "file",
			"data": "aGVsbG8=", "parentId": folder.ID,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("upload %d status = %d", i, rec.Code)
		}
	}

	listVMs := func(t *testing.T, rec *httptest.ResponseRecorder) []FileVM {
		t.Helper()
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		var vms []FileVM
		if err := json.Unmarshal(rec.Body.Bytes(), &vms); err != nil {
			t.Fatalf("response is not a list: %v", err)
		}
		return vms
	}

	t.Run("owner pages through children", func(t *testing.T) {
		page0 := listVMs(t, e.do(http.MethodGet, "/?parentId="+folder.ID, e.ownerTk, nil))
		if len(page0) != filestore.PageSize {
			t.Errorf("page 0 size = %d, want %d", len(page0), filestore.PageSize)
		}
		page1 := listVMs(t, e.do(http.MethodGet, "/?parentId="+folder.ID+"&page=1", e.ownerTk, nil))
		if len(page1) != 5 {
			t.Errorf("page 1 size = %d, want 5", len(page1))
		}
		page2 := listVMs(t, e.do(http.MethodGet, "/?parentId="+folder.ID+"&page=2", e.ownerTk, nil))
		if len(page2) != 0 {
			t.Errorf("page 2 size = %d, want 0", len(page2))
		}
	})

	t.Run("non-owner sees an empty page for a guessed parent", func(t *testing.T) {
		vms := listVMs(t, e.do(http.MethodGet, "/?parentId="+folder.ID, e.otherTk, nil))
		if len(vms) != 0 {
			t.Errorf("other user sees %d private records, want 0", len(vms))
		}
	})

	t.Run("root listing defaults", func(t *testing.T) {
		vms := listVMs(t, e.do(http.MethodGet, "/", e.ownerTk, nil))
		if len(vms) != 1 || vms[0].Name != "box" {
			t.Errorf("root listing = %+v, want just the folder", vms)
		}
		// "0" is an alias for the root
		vms = listVMs(t, e.do(http.MethodGet, "/?parentId=0", e.ownerTk, nil))
		if len(vms) != 1 {
			t.Errorf("parentId=0 listing size = %d, want 1", len(vms))
		}
	})

	t.Run("garbage parentId yields empty list", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/?parentId=zz", e.ownerTk, nil)
		vms := listVMs(t, rec)
		if len(vms) != 0 {
			t.Errorf("size = %d, want 0", len(vms))
		}
		if strings.TrimSpace(rec.Body.String()) == "null" {
			t.Error("empty listing serialized as null, want []")
		}
	})

	t.Run("negative page clamps to zero", func(t *testing.T) {
		vms := listVMs(t, e.do(http.MethodGet, "/?parentId="+folder.ID+"&page=-3", e.ownerTk, nil))
		if len(vms) != filestore.PageSize {
			t.Errorf("size = %d, want %d", len(vms), filestore.PageSize)
		}
	})
}

func TestPublishUnpublish(t *testing.T) {
	e := newTestEnv(t)

	vm := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "note.txt", "type": "file", "data": "aGVsbG8=",
	}))

	t.Run("requires token", func(t *testing.T) {
		rec := e.do(http.MethodPut, "/"+vm.ID+"/publish", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("non-owner gets 404", func(t *testing.T) {
		rec := e.do(http.MethodPut, "/"+vm.ID+"/publish", e.otherTk, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("owner round trip", func(t *testing.T) {
		rec := e.do(http.MethodPut, "/"+vm.ID+"/publish", e.ownerTk, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("publish status = %d, want 200", rec.Code)
		}
		if got := decodeVM(t, rec); !got.IsPublic {
			t.Error("publish left isPublic = false")
		}

		// Now visible to others
		if rec := e.do(http.MethodGet, "/"+vm.ID, e.otherTk, nil); rec.Code != http.StatusOK {
			t.Errorf("show after publish status = %d, want 200", rec.Code)
		}

		rec = e.do(http.MethodPut, "/"+vm.ID+"/unpublish", e.ownerTk, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("unpublish status = %d, want 200", rec.Code)
		}
		if got := decodeVM(t, rec); got.IsPublic {
			t.Error("unpublish left isPublic = true")
		}

		if rec := e.do(http.MethodGet, "/"+vm.ID, e.otherTk, nil); rec.Code != http.StatusNotFound {
			t.Errorf("show after unpublish status = %d, want 404", rec.Code)
		}
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rec := e.do(http.MethodPut, "/aaaaaaaaaaaaaaaaaaaaaaaa/publish", e.ownerTk, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestData(t *testing.T) {
	e := newTestEnv(t)

	priv := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "secret.txt", "type": "file", "data": "aGVsbG8=",
	}))
	pub := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "open.txt", "type": "file", "data": "aGVsbG8=", "isPublic": true,
	}))
	folder := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "box", "type": "folder",
	}))

	t.Run("owner fetches content", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+priv.ID+"/data", e.ownerTk, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Body.String() != "hello" {
			t.Errorf("body = %q, want hello", rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("Content-Type = %q, want text/plain", ct)
		}
	})

	t.Run("anonymous fetches public content", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+pub.ID+"/data", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Body.String() != "hello" {
			t.Errorf("body = %q, want hello", rec.Body.String())
		}
	})

	t.Run("anonymous denied private as 404", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+priv.ID+"/data", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("folder content is 400 even anonymously", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+folder.ID+"/data", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if got := errorMessage(t, rec); got != "A folder doesn't have content" {
			t.Errorf("error = %q, want A folder doesn't have content", got)
		}
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/aaaaaaaaaaaaaaaaaaaaaaaa/data", e.ownerTk, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("pending variant is 404", func(t *testing.T) {
		img := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
			"name": "photo.png", "type": "image", "data": "aGVsbG8=",
		}))
		rec := e.do(http.MethodGet, "/"+img.ID+"/data?size=100", e.ownerTk, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404 before generation", rec.Code)
		}
		// The original is still served without a size parameter
		rec = e.do(http.MethodGet, "/"+img.ID+"/data", e.ownerTk, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("original status = %d, want 200", rec.Code)
		}
	})

	t.Run("size parameter ignored for plain files", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/"+priv.ID+"/data?size=100", e.ownerTk, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Body.String() != "hello" {
			t.Errorf("body = %q, want original content", rec.Body.String())
		}
	})

	t.Run("unknown size serves the original", func(t *testing.T) {
		img := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
			"name": "pic.png", "type": "image", "data": "aGVsbG8=",
		}))
		rec := e.do(http.MethodGet, "/"+img.ID+"/data?size=99", e.ownerTk, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestData_ServesGeneratedVariant(t *testing.T) {
	e := newTestEnv(t)

	img := decodeVM(t, e.do(http.MethodPost, "/", e.ownerTk, map[string]any{
		"name": "photo.png", "type": "image", "data": "aGVsbG8=",
	}))

	// Plant variant bytes where the generator would write them
	ctx, cancel := testutil.TestContext()
	defer cancel()

	record, err := e.files.GetByID(ctx, mustObjectID(t, img.ID))
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if err := e.blobs.Put(ctx, record.VariantPath(250), bytes.NewReader([]byte("variant-bytes")), nil); err != nil {
		t.Fatalf("failed to plant variant: %v", err)
	}

	rec := e.do(http.MethodGet, "/"+img.ID+"/data?size=250", e.ownerTk, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "variant-bytes" {
		t.Errorf("body = %q, want variant-bytes", rec.Body.String())
	}
}

func mustObjectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	parsed, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		t.Fatalf("invalid ObjectID %q: %v", hex, err)
	}
	return parsed
}
