package printer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/homeassistant"
)

// StateSource is the narrow read interface the sync engine needs from the
// Home Assistant client.
type StateSource interface {
	State(ctx context.Context, entityID string) (*homeassistant.Entity, error)
}

// readConcurrency bounds the per-tick fan-out of point reads.
const readConcurrency = 8

// printerSensors are the per-tick point reads, keyed by entity suffix.
var printerSensors = []string{
	"print_progress",
	"print_status",
	"current_layer",
	"total_layer_count",
	"remaining_time",
	"task_name",
	"print_speed",
	"speed_profile",
	"filament_used",
	"nozzle_temperature",
	"nozzle_target_temperature",
	"bed_temperature",
	"bed_target_temperature",
	"chamber_temperature",
	"cooling_fan_speed",
	"aux_fan_speed",
	"chamber_fan_speed",
	"current_stage",
	"print_error",
	"wifi_signal",
}

// Syncer assembles canonical snapshots for one printer. It owns the
// per-printer continuity memory (last-known filename, last good snapshot),
// so each monitored printer needs its own instance. Sync is not safe for
// concurrent use; the poll monitor is the single caller.
type Syncer struct {
	source  StateSource
	prefix  string
	model   Model
	feeders []DiscoveredFeeder
	logger  *logrus.Logger

	lastFileName string
	lastSnapshot Snapshot
	hasSnapshot  bool
}

// NewSyncer creates a sync engine for the printer identified by prefix.
func NewSyncer(source StateSource, prefix string, logger *logrus.Logger) *Syncer {
	return &Syncer{
		source: source,
		prefix: prefix,
		model:  DetectModel(prefix),
		logger: logger,
	}
}

// SetFeeders configures which feeder units are read each tick. Typically the
// output of a discovery run.
func (s *Syncer) SetFeeders(feeders []DiscoveredFeeder) {
	s.feeders = feeders
}

// LastSnapshot returns the most recent snapshot, if any tick has completed.
func (s *Syncer) LastSnapshot() (Snapshot, bool) {
	return s.lastSnapshot, s.hasSnapshot
}

type readResult struct {
	entity *homeassistant.Entity
	err    error
}

// Sync performs one poll tick: a bounded-concurrency batch of point reads,
// assembled into one immutable snapshot plus per-feeder slot readings.
//
// A NotFound for any single sensor degrades that field to empty and the tick
// proceeds. An Unauthorized response aborts the whole tick: the prior
// snapshot is returned unchanged except Connected=false. If every read fails
// the source is considered unreachable and the tick aborts the same way.
func (s *Syncer) Sync(ctx context.Context) (Snapshot, []FeederStatus, error) {
	ids := s.entityIDs()
	results := s.fanOut(ctx, ids)

	var authErr error
	failed := 0
	for _, r := range results {
		if r.err == nil || errors.Is(r.err, homeassistant.ErrNotFound) {
			continue
		}
		failed++
		if errors.Is(r.err, homeassistant.ErrUnauthorized) {
			authErr = r.err
		}
	}

	if authErr != nil || failed == len(ids) {
		err := authErr
		if err == nil {
			err = fmt.Errorf("all %d reads failed: state source unreachable", len(ids))
		}
		s.logger.WithField("prefix", s.prefix).WithError(err).Warn("Sync tick aborted, keeping last snapshot")
		stale := s.lastSnapshot
		stale.Connected = false
		s.lastSnapshot = stale
		return stale, nil, err
	}

	if failed > 0 {
		s.logger.WithField("prefix", s.prefix).Debugf("%d of %d sensor reads failed, degrading to empty values", failed, len(ids))
	}

	snap := s.assemble(results)

	if snap.Status.IsActive() {
		snap.CoverImageURL = s.readCoverImage(ctx)
	}

	feeders := s.readFeeders(results)

	s.lastSnapshot = snap
	s.hasSnapshot = true
	return snap, feeders, nil
}

func (s *Syncer) entityIDs() []string {
	ids := make([]string, 0, len(printerSensors)+8)
	for _, suffix := range printerSensors {
		ids = append(ids, sensorDomain+"."+s.prefix+"_"+suffix)
	}
	for _, feeder := range s.feeders {
		ids = append(ids, feeder.SlotEntityIDs...)
		if feeder.HumidityEntityID != "" {
			ids = append(ids, feeder.HumidityEntityID)
		}
		if feeder.TempEntityID != "" {
			ids = append(ids, feeder.TempEntityID)
		}
	}
	return ids
}

// fanOut issues all reads concurrently under a semaphore bound. The tick
// only completes once every read has resolved or failed.
func (s *Syncer) fanOut(ctx context.Context, ids []string) map[string]readResult {
	results := make(map[string]readResult, len(ids))

	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
		sem   = make(chan struct{}, readConcurrency)
	)

	for _, id := range ids {
		wg.Add(1)
		go func(entityID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			entity, err := s.source.State(ctx, entityID)

			mutex.Lock()
			results[entityID] = readResult{entity: entity, err: err}
			mutex.Unlock()
		}(id)
	}
	wg.Wait()

	return results
}

func (s *Syncer) assemble(results map[string]readResult) Snapshot {
	value := func(suffix string) string {
		r, ok := results[sensorDomain+"."+s.prefix+"_"+suffix]
		if !ok || r.err != nil || r.entity == nil {
			return ""
		}
		return normalizeState(r.entity.State)
	}

	snap := Snapshot{
		Prefix:     s.prefix,
		Model:      s.model,
		Connected:  true,
		CapturedAt: time.Now().UTC(),

		Status:           ParseStatus(value("print_status")),
		Progress:         clampPercent(parseFloat(value("print_progress"))),
		CurrentLayer:     int(parseFloat(value("current_layer"))),
		TotalLayers:      int(parseFloat(value("total_layer_count"))),
		RemainingMinutes: ParseDurationMinutes(value("remaining_time")),

		SpeedPercent:      parseFloat(value("print_speed")),
		FilamentUsedGrams: ParseMassGrams(value("filament_used")),

		NozzleTemp:       parseFloat(value("nozzle_temperature")),
		NozzleTargetTemp: parseFloat(value("nozzle_target_temperature")),
		BedTemp:          parseFloat(value("bed_temperature")),
		BedTargetTemp:    parseFloat(value("bed_target_temperature")),
		ChamberTemp:      parseFloat(value("chamber_temperature")),

		PartFanSpeed:    clampPercent(parseFloat(value("cooling_fan_speed"))),
		AuxFanSpeed:     clampPercent(parseFloat(value("aux_fan_speed"))),
		ChamberFanSpeed: clampPercent(parseFloat(value("chamber_fan_speed"))),

		Stage:      value("current_stage"),
		ErrorText:  value("print_error"),
		WifiSignal: value("wifi_signal"),
	}

	snap.FileName = s.resolveFileName(value("task_name"), snap.Status)

	return snap
}

// resolveFileName applies the filename continuity rule: a brief sensor gap
// mid-print must not blank the filename. A non-active status clears the
// remembered name, so a later active tick shows the placeholder rather than
// the previous print's file.
func (s *Syncer) resolveFileName(raw string, status Status) string {
	if raw != "" {
		s.lastFileName = raw
		return raw
	}

	if status.IsActive() && s.lastFileName != "" {
		return s.lastFileName
	}

	s.lastFileName = ""
	return PlaceholderFileName
}

func (s *Syncer) readFeeders(results map[string]readResult) []FeederStatus {
	statuses := make([]FeederStatus, 0, len(s.feeders))

	for _, feeder := range s.feeders {
		status := FeederStatus{Prefix: feeder.Prefix}

		if feeder.HumidityEntityID != "" {
			if r, ok := results[feeder.HumidityEntityID]; ok && r.err == nil && r.entity != nil {
				status.Humidity = normalizeState(r.entity.State)
			}
		}
		if feeder.TempEntityID != "" {
			if r, ok := results[feeder.TempEntityID]; ok && r.err == nil && r.entity != nil {
				status.Temperature = normalizeState(r.entity.State)
			}
		}

		for _, id := range feeder.SlotEntityIDs {
			r, ok := results[id]
			if !ok || r.err != nil || r.entity == nil {
				continue
			}
			status.Slots = append(status.Slots, ReadSlot(r.entity, slotIndexFromID(id)))
		}

		statuses = append(statuses, status)
	}

	return statuses
}

// readCoverImage resolves the cover-image reference for the active print.
// Best effort: any failure just leaves the field empty.
func (s *Syncer) readCoverImage(ctx context.Context) string {
	entity, err := s.source.State(ctx, "image."+s.prefix+"_cover_image")
	if err != nil || entity == nil {
		return ""
	}
	if picture := entity.StringAttr("entity_picture"); picture != "" {
		return picture
	}
	return ""
}

func slotIndexFromID(entityID string) int {
	i := strings.LastIndex(entityID, "_")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(entityID[i+1:])
	if err != nil {
		return 0
	}
	return n
}

// normalizeState maps the Home Assistant "unavailable"/"unknown" sentinels
// to the empty string so downstream parsers fall back cleanly.
func normalizeState(state string) string {
	switch strings.ToLower(state) {
	case "unavailable", "unknown", "none":
		return ""
	default:
		return state
	}
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}
