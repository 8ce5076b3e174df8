package ingest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"oceanwatch/internal/observability"
	"oceanwatch/pkg/types"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type memoryStore struct {
	mu      sync.Mutex
	reports []*types.IncidentReport
	err     error
	clock   clockwork.Clock
}

func (m *memoryStore) CreateReport(_ context.Context, report *types.IncidentReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	report.CreatedAt = m.clock.Now()
	report.UpdatedAt = report.CreatedAt
	m.reports = append(m.reports, report)
	return nil
}

func (m *memoryStore) Reports(_ context.Context) ([]*types.IncidentReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := append([]*types.IncidentReport(nil), m.reports...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) ReportByID(_ context.Context, id string) (*types.IncidentReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, types.ErrReportNotFound
}

type memoryMedia struct {
	objects map[string][]byte
	err     error
}

func (m *memoryMedia) Put(_ context.Context, key, _ string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func (m *memoryMedia) URL(key string) string { return "/uploads/" + key }

type recordingPublisher struct {
	published []*types.IncidentReport
	err       error
}

func (p *recordingPublisher) ReportCreated(_ context.Context, report *types.IncidentReport) error {
	p.published = append(p.published, report)
	return p.err
}

type fixture struct {
	svc    *Service
	store  *memoryStore
	media  *memoryMedia
	events *recordingPublisher
	clock  *clockwork.FakeClock
	logs   *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 10, 5, 0, 0, time.UTC))
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		store:  &memoryStore{clock: clock},
		media:  &memoryMedia{},
		events: &recordingPublisher{},
		clock:  clock,
		logs:   hook,
	}
	f.svc = New(f.store, f.media, logger, observability.NewUnregisteredMetrics(), WithEvents(f.events), WithClock(clock))
	return f
}

func validPayload() types.ReportPayload {
	return types.ReportPayload{
		HazardType:          "Tsunami",
		Severity:            "High",
		Description:         "Large wave observed",
		LocationDescription: "Marina Beach",
		Latitude:            "13.05",
		Longitude:           "80.28",
		TimeOfObservation:   "2024-06-01T10:00:00Z",
	}
}

// --- tests ---

func TestCreateReport_NoAttachment(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.CreateReport(context.Background(), validPayload(), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, types.HazardTsunami, report.HazardType)
	assert.Equal(t, types.SeverityHigh, report.Severity)
	assert.Equal(t, "Large wave observed", report.Description)
	assert.Equal(t, "Marina Beach", report.LocationDescription)
	assert.InDelta(t, 13.05, report.Latitude, 1e-9)
	assert.InDelta(t, 80.28, report.Longitude, 1e-9)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), report.TimeOfObservation)
	assert.Equal(t, types.ReportStatusPending, report.Status)
	assert.Nil(t, report.MediaURL)
	assert.Nil(t, report.MediaType)
	assert.Empty(t, f.media.objects)

	require.Len(t, f.store.reports, 1)
	require.Len(t, f.events.published, 1)
	assert.Equal(t, report.ID, f.events.published[0].ID)
}

func TestCreateReport_ClassifiesAttachment(t *testing.T) {
	tests := []struct {
		contentType string
		want        types.MediaKind
	}{
		{"image/png", types.MediaKindImage},
		{"image/jpeg", types.MediaKindImage},
		{"video/mp4", types.MediaKindVideo},
		{"video/quicktime; codecs=avc1", types.MediaKindVideo},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			f := newFixture(t)
			att := &types.Attachment{Filename: "evidence.bin", ContentType: tt.contentType, Data: []byte("payload"), Size: 7}

			report, err := f.svc.CreateReport(context.Background(), validPayload(), att)
			require.NoError(t, err)

			require.NotNil(t, report.MediaType)
			assert.Equal(t, tt.want, *report.MediaType)
			require.NotNil(t, report.MediaURL)
			assert.True(t, strings.HasPrefix(*report.MediaURL, "/uploads/incidents/"))
			assert.True(t, strings.HasSuffix(*report.MediaURL, "-evidence.bin"))
			assert.Len(t, f.media.objects, 1)
		})
	}
}

func TestCreateReport_UnsupportedMediaRejectedBeforePersist(t *testing.T) {
	f := newFixture(t)
	att := &types.Attachment{Filename: "notes.pdf", ContentType: "application/pdf", Data: []byte("%PDF"), Size: 4}

	report, err := f.svc.CreateReport(context.Background(), validPayload(), att)
	require.Error(t, err)
	assert.Nil(t, report)

	var unsupported *types.UnsupportedMediaError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "application/pdf", unsupported.ContentType)
	assert.Empty(t, f.store.reports)
	assert.Empty(t, f.media.objects)
	assert.Empty(t, f.events.published)
}

func TestCreateReport_OversizedAttachment(t *testing.T) {
	f := newFixture(t)
	att := &types.Attachment{Filename: "clip.mp4", ContentType: "video/mp4", Size: types.MaxMediaBytes + 1}

	_, err := f.svc.CreateReport(context.Background(), validPayload(), att)

	var tooLarge *types.PayloadTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, types.MaxMediaBytes, tooLarge.Limit)
	assert.Empty(t, f.store.reports)
	assert.Empty(t, f.media.objects)
}

func TestCreateReport_EnumeratesEveryMissingField(t *testing.T) {
	f := newFixture(t)
	payload := validPayload()
	payload.Latitude = ""
	payload.Description = "   "

	_, err := f.svc.CreateReport(context.Background(), payload, nil)

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"description", "latitude"}, verr.MissingFields)
	assert.Empty(t, verr.InvalidFields)
	assert.Empty(t, f.store.reports)
}

func TestCreateReport_AllFieldsMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateReport(context.Background(), types.ReportPayload{}, nil)

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"hazardType", "severity", "description", "locationDescription",
		"latitude", "longitude", "timeOfObservation",
	}, verr.MissingFields)
}

func TestCreateReport_MalformedFields(t *testing.T) {
	f := newFixture(t)
	payload := validPayload()
	payload.HazardType = "Volcano"
	payload.Latitude = "91"
	payload.Longitude = "east"
	payload.TimeOfObservation = "yesterday"

	_, err := f.svc.CreateReport(context.Background(), payload, nil)

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, verr.MissingFields)
	assert.ElementsMatch(t, []string{"hazardType", "latitude", "longitude", "timeOfObservation"}, verr.InvalidFields)
}

func TestCreateReport_ValidationBeatsMediaRejection(t *testing.T) {
	f := newFixture(t)
	payload := validPayload()
	payload.Longitude = ""
	att := &types.Attachment{Filename: "x.pdf", ContentType: "application/pdf"}

	_, err := f.svc.CreateReport(context.Background(), payload, att)

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"longitude"}, verr.MissingFields)
}

func TestCreateReport_DateOnlyObservation(t *testing.T) {
	f := newFixture(t)
	payload := validPayload()
	payload.TimeOfObservation = "2024-06-01"

	report, err := f.svc.CreateReport(context.Background(), payload, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), report.TimeOfObservation)
}

func TestCreateReport_KeepsDeviceInfo(t *testing.T) {
	f := newFixture(t)
	payload := validPayload()
	payload.DeviceInfo = `{"userAgent":"Mozilla/5.0","language":"ta-IN"}`

	report, err := f.svc.CreateReport(context.Background(), payload, nil)
	require.NoError(t, err)
	assert.JSONEq(t, payload.DeviceInfo, string(report.DeviceInfo))
}

func TestCreateReport_MediaWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.media.err = errors.New("disk full")
	att := &types.Attachment{Filename: "wave.png", ContentType: "image/png", Data: []byte("png")}

	_, err := f.svc.CreateReport(context.Background(), validPayload(), att)

	var ierr *types.IngestionError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "store attachment", ierr.Op)
	assert.Empty(t, f.store.reports)
	assert.True(t, types.IsRetryable(err))
}

func TestCreateReport_RecordWriteFailureLeavesAttachment(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("connection reset")
	att := &types.Attachment{Filename: "wave.png", ContentType: "image/png", Data: []byte("png")}

	_, err := f.svc.CreateReport(context.Background(), validPayload(), att)

	var ierr *types.IngestionError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "persist report", ierr.Op)
	assert.Len(t, f.media.objects, 1)
	assert.Empty(t, f.events.published)

	entry := f.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Contains(t, entry.Data, "orphaned_media")
}

func TestCreateReport_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker unavailable")

	report, err := f.svc.CreateReport(context.Background(), validPayload(), nil)
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Equal(t, logrus.WarnLevel, f.logs.LastEntry().Level)
}

func TestListReports_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateReport(ctx, validPayload(), nil)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.svc.CreateReport(ctx, validPayload(), nil)
	require.NoError(t, err)

	reports, err := f.svc.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, second.ID, reports[0].ID)
	assert.Equal(t, first.ID, reports[1].ID)
}

func TestListReports_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)

	reports, err := f.svc.ListReports(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestReportByID(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateReport(context.Background(), validPayload(), nil)
	require.NoError(t, err)

	got, err := f.svc.ReportByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = f.svc.ReportByID(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrReportNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "wave.png", sanitizeFilename("wave.png"))
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "my_photo__1_.jpg", sanitizeFilename("my photo (1).jpg"))
	assert.Equal(t, "shot.jpg", sanitizeFilename(`C:\Users\me\shot.jpg`))
	assert.Equal(t, "upload", sanitizeFilename(""))
	assert.Len(t, sanitizeFilename(strings.Repeat("a", 300)+".png"), maxStoredNameLen)
}

func TestMediaKey_DiffersByContent(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	a := mediaKey(now, &types.Attachment{Filename: "wave.png", Data: []byte("one")})
	b := mediaKey(now, &types.Attachment{Filename: "wave.png", Data: []byte("two")})

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "incidents/1717236000000-"))
}
