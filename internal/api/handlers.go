package api

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/reachmap/reachmap_core/internal/cache"
	"github.com/reachmap/reachmap_core/internal/gtfs"
	"github.com/reachmap/reachmap_core/internal/models"
	"github.com/reachmap/reachmap_core/internal/reach"
	"github.com/reachmap/reachmap_core/internal/spatial"
	"github.com/reachmap/reachmap_core/internal/timetable"
)

// Search defaults when the query omits a parameter
const (
	defaultStartTime = "09:00:00"
	defaultHorizon   = 90 * time.Minute
	defaultWalkSpeed = 1.06 // meters per second
)

var defaultQualifyingModes = models.NewModeSet(models.ModeLightRail)

// Server holds the shared services the handlers run against.
type Server struct {
	Timetable *timetable.Index
	Spatial   *spatial.Index
	Engine    *reach.Engine
	CacheTTL  time.Duration
	MutexTTL  time.Duration
}

// NewServer wires the handlers to a loaded timetable and spatial index.
func NewServer(tt *timetable.Index, sp *spatial.Index) *Server {
	cfg := cache.LoadConfigFromEnv()
	return &Server{
		Timetable: tt,
		Spatial:   sp,
		Engine:    reach.NewEngine(tt, sp),
		CacheTTL:  cfg.TTL,
		MutexTTL:  cfg.MutexTTL,
	}
}

// ReachabilityResponse is the API response for a reachability query.
type ReachabilityResponse struct {
	Origin         string          `json:"origin"`
	ServiceDate    string          `json:"service_date"`
	StartOffset    int             `json:"start_offset_seconds"`
	HorizonOffset  int             `json:"horizon_offset_seconds"`
	TripsEvaluated int             `json:"trips_evaluated"`
	StopCount      int             `json:"stop_count"`
	Stops          []ReachableStop `json:"stops"`
}

// ReachableStop is one reachable stop and its fastest itinerary.
type ReachableStop struct {
	StopID        string  `json:"stop_id"`
	Name          string  `json:"name"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	ArrivalOffset int     `json:"arrival_offset_seconds"`
	ArrivalTime   string  `json:"arrival_time"`
	Qualifying    bool    `json:"qualifying"`
	Steps         []Step  `json:"steps"`
}

// Step is one leg of an itinerary.
type Step struct {
	Type         string  `json:"type"`
	Departure    string  `json:"departure"`
	Arrival      string  `json:"arrival"`
	Route        string  `json:"route,omitempty"`
	DistanceM    float64 `json:"distance_meters,omitempty"`
	ToStop       string  `json:"to_stop"`
	ToStopName   string  `json:"to_stop_name"`
	DurationSecs int     `json:"duration_seconds"`
}

// Health handles GET /health
func (s *Server) Health(c *fiber.Ctx) error {
	status := fiber.Map{
		"status":       "ok",
		"service_date": s.Timetable.ServiceDate(),
		"timetable":    s.Timetable.IsLoaded(),
	}

	if err := cache.HealthCheck(c.Context()); err != nil {
		status["cache"] = "unavailable"
	} else {
		status["cache"] = "ok"
	}

	if !s.Timetable.IsLoaded() {
		status["status"] = "degraded"
		return c.Status(503).JSON(status)
	}
	return c.JSON(status)
}

// Stats handles GET /stats
func (s *Server) Stats(c *fiber.Ctx) error {
	payload := fiber.Map{
		"service_date": s.Timetable.ServiceDate(),
		"stop_count":   len(s.Timetable.Stops()),
	}

	if cacheStats, err := cache.Stats(c.Context()); err != nil {
		payload["cache"] = fiber.Map{"error": err.Error()}
	} else {
		payload["cache"] = cacheStats
	}

	return c.JSON(payload)
}

// Reachability handles GET /v1/reachability. Results are cached in Redis
// keyed by the full search configuration, with a mutex lock so concurrent
// identical queries run the search once.
func (s *Server) Reachability(c *fiber.Ctx) error {
	opts, err := s.parseSearchQuery(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	key := cache.ReachabilityKey(
		opts.OriginStopID, s.Timetable.ServiceDate(),
		opts.StartOffset, int(opts.Horizon/time.Second), opts.WalkSpeed,
		modeSetString(opts.AllowedModes), modeSetString(opts.QualifyingModes),
	)

	ctx := c.Context()

	var cached ReachabilityResponse
	if hit, err := cache.GetJSON(ctx, key, &cached); err == nil && hit {
		c.Set("X-Cache", "HIT")
		return c.JSON(cached)
	}

	// Cache miss: take the lock or wait for whoever holds it
	lockKey := cache.LockKey(key)
	acquired, err := cache.AcquireLock(ctx, lockKey, s.MutexTTL)
	if err == nil && !acquired {
		if hit, err := cache.WaitForResult(ctx, key, s.MutexTTL, &cached); err == nil && hit {
			c.Set("X-Cache", "WAIT")
			return c.JSON(cached)
		}
	}
	if acquired {
		defer cache.ReleaseLock(context.Background(), lockKey)
	}

	result, err := s.Engine.Run(ctx, opts)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	response := s.buildResponse(result)

	if err := cache.SetJSON(ctx, key, response, s.CacheTTL); err != nil {
		log.Printf("Warning: failed to cache reachability result: %v", err)
	}

	c.Set("X-Cache", "MISS")
	return c.JSON(response)
}

func (s *Server) parseSearchQuery(c *fiber.Ctx) (reach.Options, error) {
	var opts reach.Options

	opts.OriginStopID = c.Query("stop")
	if opts.OriginStopID == "" {
		return opts, fiber.NewError(400, "missing required parameter: stop")
	}
	if _, ok := s.Timetable.Stop(opts.OriginStopID); !ok {
		return opts, fiber.NewError(400, "unknown stop: "+opts.OriginStopID)
	}

	start, err := gtfs.ParseTimeToSeconds(c.Query("start", defaultStartTime))
	if err != nil {
		return opts, fiber.NewError(400, "invalid start time, want HH:MM:SS")
	}
	opts.StartOffset = start

	opts.Horizon = defaultHorizon
	if d := c.Query("duration"); d != "" {
		horizon, err := time.ParseDuration(d)
		if err != nil || horizon <= 0 {
			return opts, fiber.NewError(400, "invalid duration")
		}
		opts.Horizon = horizon
	}

	opts.WalkSpeed = c.QueryFloat("walk_speed", defaultWalkSpeed)
	if opts.WalkSpeed < 0 {
		return opts, fiber.NewError(400, "walk_speed must not be negative")
	}

	opts.AllowedModes, err = parseModesParam(c.Query("modes"))
	if err != nil {
		return opts, err
	}

	opts.QualifyingModes = defaultQualifyingModes
	if q := c.Query("qualifying"); q != "" {
		opts.QualifyingModes, err = parseModesParam(q)
		if err != nil {
			return opts, err
		}
	}

	return opts, nil
}

func (s *Server) buildResponse(result *reach.Result) ReachabilityResponse {
	response := ReachabilityResponse{
		Origin:         result.Origin,
		ServiceDate:    s.Timetable.ServiceDate(),
		StartOffset:    result.StartOffset,
		HorizonOffset:  result.HorizonOffset,
		TripsEvaluated: result.TripsEvaluated,
		StopCount:      len(result.Reachable),
	}

	for stopID, path := range result.Reachable {
		stop, ok := s.Timetable.Stop(stopID)
		if !ok {
			continue
		}

		rs := ReachableStop{
			StopID:        stopID,
			Name:          stop.Name,
			Lat:           stop.Lat,
			Lon:           stop.Lon,
			ArrivalOffset: path.Last().Arrival,
			ArrivalTime:   gtfs.FormatSeconds(path.Last().Arrival),
			Qualifying:    result.Qualifying[stopID],
		}

		for _, seg := range path.WithWaiting().Segments() {
			step := Step{
				Type:         string(seg.Kind),
				Departure:    gtfs.FormatSeconds(seg.Departure),
				Arrival:      gtfs.FormatSeconds(seg.Arrival),
				Route:        seg.Route,
				DistanceM:    seg.WalkMeters,
				ToStop:       seg.StopID,
				DurationSecs: seg.Arrival - seg.Departure,
			}
			if toStop, ok := s.Timetable.Stop(seg.StopID); ok {
				step.ToStopName = toStop.Name
			}
			rs.Steps = append(rs.Steps, step)
		}

		response.Stops = append(response.Stops, rs)
	}

	sort.Slice(response.Stops, func(i, j int) bool {
		if response.Stops[i].ArrivalOffset != response.Stops[j].ArrivalOffset {
			return response.Stops[i].ArrivalOffset < response.Stops[j].ArrivalOffset
		}
		return response.Stops[i].StopID < response.Stops[j].StopID
	})

	return response
}

// parseModesParam parses a comma-separated mode list; empty means nil (all).
func parseModesParam(param string) (models.ModeSet, error) {
	if param == "" {
		return nil, nil
	}

	set := make(models.ModeSet)
	for _, part := range strings.Split(param, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mode, err := gtfs.ParseMode(part)
		if err != nil {
			return nil, fiber.NewError(400, err.Error())
		}
		set[mode] = true
	}
	if len(set) == 0 {
		return nil, nil
	}
	return set, nil
}

func modeSetString(set models.ModeSet) string {
	if set == nil {
		return "all"
	}
	modes := make([]string, 0, len(set))
	for m := range set {
		modes = append(modes, string(m))
	}
	sort.Strings(modes)
	return strings.Join(modes, ",")
}
