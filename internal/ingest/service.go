package ingest

import (
	"context"
	"errors"
	"time"

	"oceanwatch/internal/observability"
	"oceanwatch/internal/storage"
	"oceanwatch/internal/utils"
	"oceanwatch/pkg/types"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// ReportStore is the durable collection of incident reports.
type ReportStore interface {
	CreateReport(ctx context.Context, report *types.IncidentReport) error
	Reports(ctx context.Context) ([]*types.IncidentReport, error)
	ReportByID(ctx context.Context, id string) (*types.IncidentReport, error)
}

// EventPublisher is notified after a report has been persisted.
type EventPublisher interface {
	ReportCreated(ctx context.Context, report *types.IncidentReport) error
}

// Service validates, classifies and persists incoming incident reports.
type Service struct {
	store   ReportStore
	media   storage.MediaStore
	events  EventPublisher
	logger  *logrus.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

type Option func(*Service)

// WithEvents enables report.created publishing.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func New(store ReportStore, media storage.MediaStore, logger *logrus.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		store:   store,
		media:   media,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReport validates payload and the optional attachment, writes the
// attachment to the media store and persists the report with status
// pending.
//
// Every rejection happens before anything is written. If the record insert
// fails after the attachment was stored the attachment is left in place.
func (s *Service) CreateReport(ctx context.Context, payload types.ReportPayload, att *types.Attachment) (*types.IncidentReport, error) {
	started := s.clock.Now()

	parsed, verr := validatePayload(payload)
	if verr != nil {
		s.reject("validation")
		return nil, verr
	}

	var kind *types.MediaKind
	if att != nil {
		k, err := classifyMedia(att.ContentType)
		if err != nil {
			s.reject("unsupported_media")
			return nil, err
		}
		if err := checkMediaSize(att); err != nil {
			s.reject("too_large")
			return nil, err
		}
		kind = &k
	}

	report := &types.IncidentReport{
		ID:                  utils.NanoID(),
		HazardType:          parsed.hazardType,
		Severity:            parsed.severity,
		Description:         payload.Description,
		LocationDescription: payload.LocationDescription,
		Latitude:            parsed.latitude,
		Longitude:           parsed.longitude,
		TimeOfObservation:   parsed.timeOfObservation,
		Status:              types.ReportStatusPending,
		DeviceInfo:          parsed.deviceInfo,
	}

	if att != nil {
		key := mediaKey(started, att)
		if err := s.media.Put(ctx, key, att.ContentType, att.Data); err != nil {
			s.reject("storage")
			s.logger.WithError(err).WithField("key", key).Error("failed to store attachment")
			return nil, &types.IngestionError{Op: "store attachment", Err: err}
		}
		url := s.media.URL(key)
		report.MediaURL = &url
		report.MediaType = kind
		s.metrics.MediaBytes.Add(float64(len(att.Data)))
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		s.reject("storage")
		fields := logrus.Fields{"report_id": report.ID}
		if report.MediaURL != nil {
			fields["orphaned_media"] = *report.MediaURL
		}
		s.logger.WithError(err).WithFields(fields).Error("failed to persist report")
		return nil, &types.IngestionError{Op: "persist report", Err: err}
	}

	s.metrics.ReportsIngested.WithLabelValues(mediaLabel(kind)).Inc()
	s.metrics.IngestDuration.Observe(s.clock.Since(started).Seconds())

	s.logger.WithFields(logrus.Fields{
		"report_id":   report.ID,
		"hazard_type": report.HazardType,
		"severity":    report.Severity,
		"media_type":  mediaLabel(kind),
	}).Info("incident report created")

	s.publish(ctx, report)

	return report, nil
}

// ListReports returns every stored report ordered newest first.
func (s *Service) ListReports(ctx context.Context) ([]*types.IncidentReport, error) {
	reports, err := s.store.Reports(ctx)
	if err != nil {
		return nil, &types.IngestionError{Op: "list reports", Err: err}
	}
	if reports == nil {
		reports = []*types.IncidentReport{}
	}
	return reports, nil
}

func (s *Service) ReportByID(ctx context.Context, id string) (*types.IncidentReport, error) {
	report, err := s.store.ReportByID(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrReportNotFound) {
			return nil, err
		}
		return nil, &types.IngestionError{Op: "fetch report", Err: err}
	}
	return report, nil
}

func (s *Service) publish(ctx context.Context, report *types.IncidentReport) {
	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.events.ReportCreated(ctx, report); err != nil {
		s.metrics.EventPublishErrs.Inc()
		s.logger.WithError(err).WithField("report_id", report.ID).Warn("failed to publish report event")
	}
}

func (s *Service) reject(reason string) {
	s.metrics.ReportsRejected.WithLabelValues(reason).Inc()
}

func mediaLabel(kind *types.MediaKind) string {
	if kind == nil {
		return "none"
	}
	return string(*kind)
}
