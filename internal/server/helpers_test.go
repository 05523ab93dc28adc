package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/entitlement"
	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/rendering"
	"github.com/jonathan/resume-analyzer/internal/server/ratelimit"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\n%%EOF\n")

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

const analysisJSON = "```json\n" + `{
  "atsScore": 81,
  "summary": "Strong Go background",
  "strengths": ["Go", "PostgreSQL"],
  "improvementAreas": ["Kubernetes"],
  "keywordMatch": {"matched": ["Go"], "missing": ["Kubernetes"]},
  "recommendations": ["Quantify impact"],
  "detailedAnalysis": "## Details",
  "contactInfo": {"name": "Jane Doe", "email": "jane@example.com"}
}` + "\n```"

const rewrittenMarkdown = "# Jane Doe\n\nBackend engineer."

// fakeUsers is an in-memory UserStore with case-insensitive unique emails.
type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*db.User
	err   error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[uuid.UUID]*db.User{}} }

func (f *fakeUsers) CreateUser(_ context.Context, name, email, passwordHash string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return uuid.Nil, f.err
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return uuid.Nil, db.ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	u := &db.User{ID: uuid.New(), Name: name, Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	f.users[u.ID] = u
	return u.ID, nil
}

func (f *fakeUsers) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// fakeGate entitles exactly the listed users to every feature.
type fakeGate struct {
	mu       sync.Mutex
	entitled map[uuid.UUID]bool
}

func newFakeGate() *fakeGate { return &fakeGate{entitled: map[uuid.UUID]bool{}} }

func (g *fakeGate) allow(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entitled[id] = true
}

func (g *fakeGate) IsEntitled(_ context.Context, id uuid.UUID, _ entitlement.Feature) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entitled[id]
}

func (g *fakeGate) Entitlements(ctx context.Context, id uuid.UUID) map[string]bool {
	out := make(map[string]bool, len(entitlement.AllFeatures))
	for _, f := range entitlement.AllFeatures {
		out[string(f)] = g.IsEntitled(ctx, id, f)
	}
	return out
}

// fakeRenderer returns a fixed document or error and records the markdown it saw.
type fakeRenderer struct {
	mu    sync.Mutex
	seen  []string
	style rendering.StyleProfile
	err   error
}

func (r *fakeRenderer) RenderMarkdownToPDF(_ context.Context, md string, style rendering.StyleProfile) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, md)
	r.style = style
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.7 rendered"), nil
}

// scriptedAI answers the first Generate with analysisJSON and later ones with the rewrite.
type scriptedAI struct {
	mu          sync.Mutex
	generates   int
	releases    int
	generateErr error
}

func (a *scriptedAI) Ingest(_ context.Context, _ []byte, displayName, mimeType string) (*llm.RemoteFile, error) {
	return &llm.RemoteFile{Name: "files/" + displayName, URI: "https://files.example/" + displayName, MIMEType: mimeType}, nil
}

func (a *scriptedAI) AwaitProcessed(context.Context, *llm.RemoteFile, time.Duration, int) error {
	return nil
}

func (a *scriptedAI) Generate(_ context.Context, _ llm.ModelTier, _ ...llm.PromptPart) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generates++
	if a.generateErr != nil {
		return "", a.generateErr
	}
	if a.generates == 1 {
		return analysisJSON, nil
	}
	return "```markdown\n" + rewrittenMarkdown + "\n```", nil
}

func (a *scriptedAI) Release(context.Context, *llm.RemoteFile) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releases++
	return nil
}

func (a *scriptedAI) Close() error { return nil }

func (a *scriptedAI) releaseCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.releases
}

// failingBlobs wraps a BlobStore and fails every Delete.
type failingBlobs struct {
	storage.BlobStore
}

func (failingBlobs) Delete(context.Context, string) error { return errors.New("bucket unavailable") }

type testEnv struct {
	t        *testing.T
	handler  http.Handler
	srv      *Server
	users    *fakeUsers
	records  *analysis.MemoryStore
	blobs    storage.BlobStore
	gate     *fakeGate
	ai       *scriptedAI
	renderer *fakeRenderer
}

type envOption func(*Deps, *Config)

func withRateLimit(cfg *ratelimit.Config) envOption {
	return func(d *Deps, _ *Config) { d.RateLimit = cfg }
}

func withBlobs(b storage.BlobStore) envOption {
	return func(d *Deps, _ *Config) { d.Blobs = b }
}

func withMaxUpload(n int64) envOption {
	return func(_ *Deps, c *Config) { c.MaxUploadBytes = n }
}

// newTestEnv wires a Server around a real orchestrator running inline rewrites
// against in-memory fakes.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		t:        t,
		users:    newFakeUsers(),
		records:  analysis.NewMemoryStore(),
		gate:     newFakeGate(),
		ai:       &scriptedAI{},
		renderer: &fakeRenderer{},
	}

	deps := Deps{
		Users:     env.users,
		Records:   env.records,
		Blobs:     local,
		Renderer:  env.renderer,
		Gate:      env.gate,
		JWT:       &config.JWTConfig{Secret: testSecret, ExpirationHours: 1, Issuer: "resume-analyzer-test"},
		Passwords: &config.PasswordConfig{BcryptCost: bcrypt.MinCost},
	}
	cfg := Config{Port: 0}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}
	env.blobs = deps.Blobs

	orch, err := pipeline.New(pipeline.Deps{
		Blobs:   deps.Blobs,
		AI:      env.ai,
		Records: env.records,
		Gate:    env.gate,
	}, pipeline.Options{
		RewriteMode:    config.RewriteInline,
		PollInterval:   time.Millisecond,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	require.NoError(t, err)
	deps.Analyzer = orch

	srv, err := New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.Stop)

	env.srv = srv
	env.handler = srv.Handler()
	return env
}

// user registers an account directly in the store and returns its id and a bearer token.
func (e *testEnv) user(email string) (uuid.UUID, string) {
	e.t.Helper()
	id, err := e.users.CreateUser(context.Background(), "Test User", email, "unused-hash")
	require.NoError(e.t, err)
	token, err := e.srv.jwtService.GenerateToken(id)
	require.NoError(e.t, err)
	return id, token
}

// seed stores a blob and a record for owner, optionally with a rewrite.
func (e *testEnv) seed(owner uuid.UUID, markdown string) *types.ResumeAnalysis {
	e.t.Helper()
	ctx := context.Background()
	locator, err := e.blobs.Put(ctx, samplePDF, "resume.pdf")
	require.NoError(e.t, err)

	rec := &types.ResumeAnalysis{
		OwnerID:        owner,
		JobTitle:       "Backend Engineer",
		JobDescription: "Go services",
		SourceFile: types.SourceFile{
			StorageLocator:   locator,
			OriginalFileName: "jane.pdf",
			MIMEType:         "application/pdf",
			ByteSize:         int64(len(samplePDF)),
		},
		Analysis: types.AnalysisResult{
			ATSScore:    70,
			ContactInfo: types.ContactInfo{Name: "Jane Doe"},
		},
	}
	if markdown != "" {
		rec.Analysis.RewrittenResumeMarkdown = &markdown
	}
	_, err = e.records.Create(ctx, rec)
	require.NoError(e.t, err)
	return rec
}

func (e *testEnv) do(method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// uploadForm builds a multipart body. An empty fileName omits the file part.
func uploadForm(t *testing.T, fileName, partType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		h.Set("Content-Type", partType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func jobFields() map[string]string {
	return map[string]string{"jobTitle": "Backend Engineer", "jobDescription": "Build Go services"}
}
