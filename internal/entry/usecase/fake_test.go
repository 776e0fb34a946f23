package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/clock"
	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/shandysiswandi/entryotp/internal/pkg/hash"
	"github.com/shandysiswandi/entryotp/internal/pkg/idempotency"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/storage"
	"github.com/shandysiswandi/entryotp/internal/pkg/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// fakeRepo is an in-memory repoDB. Its transactional methods stage changes on
// copies and only publish them when no failure is injected.
type fakeRepo struct {
	mu       sync.Mutex
	entries  map[int64]*entity.Entry
	otps     []*entity.OTP
	attempts []entity.Attempt
	logs     []entity.NotificationLog

	errApply   error
	errReplace error
	errCount   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: map[int64]*entity.Entry{}}
}

func (f *fakeRepo) seed(e entity.Entry) *entity.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := e
	f.entries[e.ID] = &cp
	return &cp
}

func (f *fakeRepo) entry(id int64) entity.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.entries[id]
}

func (f *fakeRepo) unusedOTPs(entryID int64) []entity.OTP {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.OTP
	for _, o := range f.otps {
		if o.EntryID == entryID && !o.IsUsed {
			out = append(out, *o)
		}
	}
	return out
}

func (f *fakeRepo) lastAttempt() entity.Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[len(f.attempts)-1]
}

func (f *fakeRepo) outcomes(kind entity.AttemptKind) []entity.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Outcome
	for _, a := range f.attempts {
		if a.Kind == kind {
			out = append(out, a.Outcome)
		}
	}
	return out
}

func (f *fakeRepo) GetEntryByID(_ context.Context, id int64) (*entity.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeRepo) GetEntryByContact(_ context.Context, c entity.Contact) (*entity.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *entity.Entry
	for _, e := range f.entries {
		if e.Phone == c.Phone || (c.WhatsApp != "" && e.WhatsApp == c.WhatsApp) || (c.Email != "" && e.Email == c.Email) {
			if found == nil || e.CreatedAt.After(found.CreatedAt) {
				found = e
			}
		}
	}
	if found == nil {
		return nil, goerror.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (f *fakeRepo) GetEntryList(_ context.Context, filter entity.EntryListFilter) ([]entity.Entry, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []entity.Entry
	for _, e := range f.entries {
		switch filter.Status {
		case entity.EntryStatusVerified:
			if !e.IsVerified {
				continue
			}
		case entity.EntryStatusPending:
			if e.IsVerified {
				continue
			}
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(filter.Search)) {
			continue
		}
		all = append(all, *e)
	}
	slices.SortFunc(all, func(a, b entity.Entry) int { return int(a.ID - b.ID) })

	total := int64(len(all))
	start := min(int(filter.Offset), len(all))
	end := min(start+int(filter.Limit), len(all))
	return all[start:end], total, nil
}

func (f *fakeRepo) GetStats(context.Context, time.Time) (*entity.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &entity.Stats{TotalEntries: int64(len(f.entries))}
	for _, e := range f.entries {
		if e.IsVerified {
			st.VerifiedEntries++
		}
	}
	st.PendingEntries = st.TotalEntries - st.VerifiedEntries
	return st, nil
}

func (f *fakeRepo) CreateEntry(_ context.Context, in entity.NewEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.EntryNumber == in.EntryNumber {
			return goerror.ErrConflict
		}
	}
	f.entries[in.ID] = &entity.Entry{
		ID:          in.ID,
		EntryNumber: in.EntryNumber,
		Name:        in.Contact.Name,
		Phone:       in.Contact.Phone,
		WhatsApp:    in.Contact.WhatsApp,
		Email:       in.Contact.Email,
	}
	return nil
}

func (f *fakeRepo) UpdateEntryContact(_ context.Context, id int64, c entity.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return goerror.ErrNotFound
	}
	e.Name, e.Phone, e.WhatsApp, e.Email = c.Name, c.Phone, c.WhatsApp, c.Email
	return nil
}

func (f *fakeRepo) DeleteEntry(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[id]; !ok {
		return goerror.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeRepo) DeleteEntries(_ context.Context, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := f.entries[id]; ok {
			delete(f.entries, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ReplaceOTP(_ context.Context, otp entity.OTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errReplace != nil {
		return f.errReplace
	}
	for _, o := range f.otps {
		if o.EntryID == otp.EntryID {
			o.IsUsed = true
		}
	}
	cp := otp
	f.otps = append(f.otps, &cp)
	return nil
}

func (f *fakeRepo) ApplyVerification(_ context.Context, attempt entity.Attempt, decide func(*entity.OTP) entity.VerifyDecision) (*entity.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[*attempt.EntryID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	if e.IsVerified {
		return &entity.VerifyResult{
			Decision:        entity.VerifyDecision{Outcome: entity.OutcomeVerified},
			Entry:           *e,
			AlreadyVerified: true,
		}, nil
	}

	var active *entity.OTP
	for _, o := range f.otps {
		if o.EntryID == e.ID && o.Active(attempt.CreatedAt) && (active == nil || o.IssuedAt.After(active.IssuedAt)) {
			active = o
		}
	}

	var staged *entity.OTP
	if active != nil {
		cp := *active
		staged = &cp
	}
	decision := decide(staged)
	res := &entity.VerifyResult{Decision: decision, Entry: *e}

	if decision.IncrementAttempt {
		staged.AttemptCount++
	}
	if decision.MarkUsed {
		staged.IsUsed = true
	}
	if staged != nil {
		res.AttemptCount = staged.AttemptCount
	}
	if decision.VerifyEntry {
		at := attempt.CreatedAt
		res.Entry.IsVerified = true
		res.Entry.VerifiedAt = &at
	}

	if f.errApply != nil {
		return nil, f.errApply
	}

	if staged != nil {
		*active = *staged
	}
	*e = res.Entry
	attempt.Outcome = decision.Outcome
	attempt.Successful = decision.Successful()
	f.attempts = append(f.attempts, attempt)
	return res, nil
}

func (f *fakeRepo) CountAttempts(_ context.Context, filter entity.AttemptCountFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errCount != nil {
		return 0, f.errCount
	}
	var n int64
	for _, a := range f.attempts {
		if !a.CreatedAt.After(filter.Since) {
			continue
		}
		if filter.SourceIP != "" && a.SourceIP != filter.SourceIP {
			continue
		}
		if filter.EntryID != 0 && (a.EntryID == nil || *a.EntryID != filter.EntryID) {
			continue
		}
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		if len(filter.Outcomes) > 0 && !slices.Contains(filter.Outcomes, a.Outcome) {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeRepo) CreateAttempt(_ context.Context, in entity.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, in)
	return nil
}

func (f *fakeRepo) GetAttemptList(_ context.Context, filter entity.AttemptListFilter) ([]entity.Attempt, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Attempt
	for _, a := range f.attempts {
		if filter.SourceIP != "" && a.SourceIP != filter.SourceIP {
			continue
		}
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) CreateNotificationLog(_ context.Context, in entity.NotificationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, in)
	return nil
}

type mockMessaging struct {
	mock.Mock
}

func (m *mockMessaging) PublishEntryVerified(ctx context.Context, msg EntryVerifiedEvent) error {
	return m.Called(ctx, msg).Error(0)
}

// recordingChannel remembers what it was asked to deliver.
type recordingChannel struct {
	kind channel.Kind
	fail bool

	mu   sync.Mutex
	sent []channel.Message
	to   []string
}

func (c *recordingChannel) Kind() channel.Kind { return c.kind }
func (c *recordingChannel) Provider() string   { return "recording" }

func (c *recordingChannel) Send(_ context.Context, recipient string, msg channel.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	c.to = append(c.to, recipient)
	if c.fail {
		return "503 upstream", errors.New("provider unavailable")
	}
	return "accepted", nil
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (c *recordingChannel) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "nothing delivered on %s", c.kind)
	code := codePattern.FindString(c.sent[len(c.sent)-1].Text)
	require.NotEmpty(t, code)
	return code
}

type passLock struct{}

func (passLock) Exec(ctx context.Context, _ string, _ time.Duration, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type busyLock struct{}

func (busyLock) Exec(context.Context, string, time.Duration, func(ctx context.Context) error) error {
	return idempotency.ErrAlreadyInProgress
}

type seqID struct{ n atomic.Int64 }

func (s *seqID) Generate() int64 { return s.n.Inc() + 1_000 }

type fixedUUID string

func (f fixedUUID) Generate() string { return string(f) }

type memStorage struct {
	objects map[string][]byte
}

func (m *memStorage) Put(_ context.Context, key string, r io.Reader, opts storage.PutOptions) (storage.ObjectInfo, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return storage.ObjectInfo{}, err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = buf.Bytes()
	return storage.ObjectInfo{Key: key, Size: int64(buf.Len()), ContentType: opts.ContentType}, nil
}

func (m *memStorage) List(_ context.Context, prefix string, _ int) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.example.test/" + key + "?sig=x", nil
}

func (m *memStorage) Close() error { return nil }

type harness struct {
	uc      *Usecase
	repo    *fakeRepo
	msg     *mockMessaging
	sms     *recordingChannel
	email   *recordingChannel
	clock   *clock.Fixed
	storage *memStorage
}

const testConfig = `
app:
  name: LOTD
modules:
  entry:
    otp:
      channels: "sms,whatsapp,email"
`

type harnessOption func(*Dependency)

func withLock(l idempotency.Idempotency) harnessOption {
	return func(d *Dependency) { d.Idempotency = l }
}

func withRandom(r io.Reader) harnessOption {
	return func(d *Dependency) { d.Random = r }
}

func newHarness(t *testing.T, yaml string, opts ...harnessOption) *harness {
	t.Helper()

	if yaml == "" {
		yaml = testConfig
	}
	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	h := &harness{
		repo:    newFakeRepo(),
		msg:     new(mockMessaging),
		sms:     &recordingChannel{kind: channel.KindSMS},
		email:   &recordingChannel{kind: channel.KindEmail},
		clock:   &clock.Fixed{At: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
		storage: &memStorage{},
	}

	dep := Dependency{
		RepoDB:        h.repo,
		RepoMessaging: h.msg,
		Gateway:       channel.NewGateway(instrument.NewNoop(), time.Second, h.sms, h.email),
		Idempotency:   passLock{},
		Storage:       h.storage,
		Validator:     v,
		Config:        cfg,
		HMAC:          hash.NewHMACSHA256("test-secret"),
		UID:           &seqID{},
		UUID:          fixedUUID("0b7c1f9e"),
		Clock:         h.clock,
		Instrument:    instrument.NewNoop(),
	}
	for _, o := range opts {
		o(&dep)
	}
	h.uc = New(dep)

	return h
}

// seedWithCode stores an unverified entry with an active OTP for code.
func (h *harness) seedWithCode(t *testing.T, id int64, code string) *entity.Entry {
	t.Helper()

	e := h.repo.seed(entity.Entry{
		ID:          id,
		EntryNumber: "LOTDSEED01",
		Name:        "Ana Lima",
		Phone:       "+6281234567890",
		WhatsApp:    "+6281234567890",
		Email:       "ana@example.test",
		CreatedAt:   h.clock.Now(),
		UpdatedAt:   h.clock.Now(),
	})

	codeHash, err := hash.NewHMACSHA256("test-secret").Hash(code)
	require.NoError(t, err)
	require.NoError(t, h.repo.ReplaceOTP(context.Background(), entity.OTP{
		ID:        id * 10,
		EntryID:   id,
		CodeHash:  string(codeHash),
		IssuedAt:  h.clock.Now(),
		ExpiresAt: h.clock.Now().Add(h.uc.otpTTL()),
	}))

	return e
}

func requireCode(t *testing.T, err error, code goerror.Code) *goerror.Error {
	t.Helper()
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, code, gerr.Code(), "message: %s", gerr.Msg())
	return gerr
}
