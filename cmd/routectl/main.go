package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JesusSantiago31/API-GPS/internal/geo"
	"github.com/JesusSantiago31/API-GPS/internal/maps"
	"github.com/JesusSantiago31/API-GPS/internal/routing"
	"github.com/JesusSantiago31/API-GPS/pkg/config"
	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose    bool
	jsonOutput bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "routectl",
	Short: "Plan routes and geocode addresses against OpenRouteService",
	Long:  `Operator tool for the route planner: runs the same planner, geocoder and distance checks as the HTTP service.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			logger.Set(zap.NewNop())
			return nil
		}
		return logger.Init("development")
	},
	SilenceUsage: true,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a route between two points or addresses",
	Long:  `Resolve both endpoints, request driving and walking routes and apply the distance, duration and fuel cost limits.`,
	RunE:  runPlan,
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode [address]",
	Short: "Resolve an address to coordinates",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGeocode,
}

var distanceCmd = &cobra.Command{
	Use:   "distance",
	Short: "Print the great-circle distance between two points",
	Long:  `Compute the straight-line distance used by the planner's pre-check. No provider is called.`,
	RunE:  runDistance,
}

var (
	startFlag   string
	endFlag     string
	fromFlag    string
	toFlag      string
	maxDistance float64
	maxDuration float64
	maxCost     float64
	fuelType    string
	vehicleType string
	speed       float64
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log provider calls to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall request timeout")

	planCmd.Flags().StringVarP(&startFlag, "start", "s", "", "Start coordinate as lng,lat")
	planCmd.Flags().StringVarP(&endFlag, "end", "e", "", "End coordinate as lng,lat")
	planCmd.Flags().StringVar(&fromFlag, "from", "", "Start address")
	planCmd.Flags().StringVar(&toFlag, "to", "", "End address")
	planCmd.Flags().Float64Var(&maxDistance, "max-distance", 0, "Maximum distance in meters (0 = no limit)")
	planCmd.Flags().Float64Var(&maxDuration, "max-duration", 0, "Maximum duration in minutes (0 = no limit)")
	planCmd.Flags().Float64Var(&maxCost, "max-cost", 0, "Maximum fuel cost (0 = no limit)")
	planCmd.Flags().StringVarP(&fuelType, "fuel", "f", "", "Fuel grade (regular, premium, diesel)")
	planCmd.Flags().StringVar(&vehicleType, "vehicle", "", "Vehicle class (car, motorcycle)")
	planCmd.Flags().Float64Var(&speed, "speed", 0, "Average driving speed in km/h (0 = provider duration)")

	distanceCmd.Flags().StringVarP(&startFlag, "start", "s", "", "Start coordinate as lng,lat")
	distanceCmd.Flags().StringVarP(&endFlag, "end", "e", "", "End coordinate as lng,lat")
	_ = distanceCmd.MarkFlagRequired("start")
	_ = distanceCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(planCmd, geocodeCmd, distanceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	req, err := buildPlanRequest()
	if err != nil {
		return err
	}

	settings, err := routing.SettingsFromConfig(cfg)
	if err != nil {
		return err
	}
	planner := routing.NewPlanner(newGeocoder(cfg), newProvider(cfg), settings)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	result, err := planner.PlanRoute(ctx, req)
	if err != nil {
		return err
	}
	return printPlan(cmd.OutOrStdout(), result)
}

func runGeocode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	result, err := newGeocoder(cfg).Geocode(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, result)
	}
	fmt.Fprintf(out, "Address: %s\n", result.Label)
	fmt.Fprintf(out, "Coordinates: %s\n", formatPair(result.Coordinate))
	fmt.Fprintf(out, "H3 cell: %s\n", result.H3Cell)
	return nil
}

func runDistance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	start, err := parsePair(startFlag)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := parsePair(endFlag)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}

	report := newDistanceReport(start, end, cfg.Planner)
	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, report)
	}
	fmt.Fprintf(out, "Great-circle distance: %.3f km\n", report.Meters/1000)
	fmt.Fprintf(out, "H3 grid distance (res %d): %d cells\n", geo.H3ResolutionStreet, report.H3Cells)
	fmt.Fprintf(out, "Estimated drive at %.0f km/h: %.1f min\n", report.SpeedKmh, report.EstimatedMinutes)
	if report.ExceedsLimit {
		fmt.Fprintf(out, "Exceeds the planner limit of %.0f km\n", report.LimitMeters/1000)
	}
	return nil
}

type distanceReport struct {
	Meters           float64 `json:"meters"`
	H3Cells          int     `json:"h3_cells"`
	SpeedKmh         float64 `json:"speed_kmh"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
	LimitMeters      float64 `json:"limit_meters"`
	ExceedsLimit     bool    `json:"exceeds_limit"`
}

func newDistanceReport(start, end geoutil.Coordinate, planner config.PlannerConfig) distanceReport {
	meters := geoutil.Distance(start, end)
	r := distanceReport{
		Meters:      meters,
		H3Cells:     geo.CellDistance(start, end),
		SpeedKmh:    planner.DefaultSpeedKmh,
		LimitMeters: planner.MaxDistanceMeters,
	}
	if r.SpeedKmh > 0 {
		r.EstimatedMinutes = meters / 1000 / r.SpeedKmh * 60
	}
	r.ExceedsLimit = r.LimitMeters > 0 && meters > r.LimitMeters
	return r
}

func loadConfig(needsKey bool) (*config.Config, error) {
	cfg, err := config.Load("routectl")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if needsKey && cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("ORS_API_KEY is not set")
	}
	return cfg, nil
}

func newProvider(cfg *config.Config) *maps.ORSProvider {
	return maps.NewORSProvider(maps.ProviderConfig{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.DirectionsURL,
		Timeout: cfg.Provider.Timeout(),
	})
}

func newGeocoder(cfg *config.Config) *geo.ORSGeocoder {
	return geo.NewORSGeocoder(geo.GeocoderConfig{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.GeocodeURL,
		Timeout: cfg.Provider.Timeout(),
		Country: cfg.Provider.GeocodeCountry,
	})
}

func buildPlanRequest() (routing.RouteRequest, error) {
	start, err := endpointFromFlags("start", startFlag, fromFlag)
	if err != nil {
		return routing.RouteRequest{}, err
	}
	end, err := endpointFromFlags("end", endFlag, toFlag)
	if err != nil {
		return routing.RouteRequest{}, err
	}

	return routing.RouteRequest{
		Start:              start,
		End:                end,
		MaxDistanceMeters:  optional(maxDistance),
		MaxDurationMinutes: optional(maxDuration),
		MaxCost:            optional(maxCost),
		FuelGrade:          routing.ParseFuelGrade(fuelType),
		VehicleClass:       routing.ParseVehicleClass(vehicleType),
		SpeedKmh:           optional(speed),
	}, nil
}

func endpointFromFlags(which, pair, address string) (routing.Endpoint, error) {
	ep := routing.Endpoint{Address: strings.TrimSpace(address)}
	if pair == "" {
		if ep.Address == "" {
			return ep, fmt.Errorf("either --%s or an address is required", which)
		}
		return ep, nil
	}
	coord, err := parsePair(pair)
	if err != nil {
		return ep, fmt.Errorf("--%s: %w", which, err)
	}
	ep.Coordinate = &coord
	return ep, nil
}

// parsePair reads "lng,lat".
func parsePair(s string) (geoutil.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geoutil.Coordinate{}, fmt.Errorf("expected lng,lat, got %q", s)
	}
	pair := make([]float64, 2)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geoutil.Coordinate{}, fmt.Errorf("invalid number %q", p)
		}
		pair[i] = v
	}
	return geoutil.NewCoordinate(pair)
}

func optional(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func printPlan(w io.Writer, r *routing.RouteResult) error {
	if jsonOutput {
		return writeJSON(w, routing.NewCalculateRouteResponse(r))
	}

	fmt.Fprintf(w, "From: %s", formatPair(r.Start))
	if r.StartAddress != "" {
		fmt.Fprintf(w, " (%s)", r.StartAddress)
	}
	fmt.Fprintf(w, "\nTo:   %s", formatPair(r.End))
	if r.EndAddress != "" {
		fmt.Fprintf(w, " (%s)", r.EndAddress)
	}
	fmt.Fprintf(w, "\nStraight line: %.2f km\n\n", r.GreatCircleMeters/1000)

	fmt.Fprintf(w, "Selected: %s\n", r.Profile.Mode())
	if d := r.Driving; d != nil {
		fmt.Fprintf(w, "  driving: %.2f km, %.1f min, %.2f L %s, %.2f %s\n",
			d.DistanceMeters/1000, d.DurationMinutes(), d.FuelUsedLiters, r.FuelGrade, d.FuelCost, r.Currency)
	}
	if wk := r.Walking; wk != nil {
		fmt.Fprintf(w, "  walking: %.2f km, %.1f min\n", wk.DistanceMeters/1000, wk.DurationMinutes())
	}
	modes := make([]string, 0, len(r.Unavailable))
	for mode := range r.Unavailable {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	for _, mode := range modes {
		fmt.Fprintf(w, "  %s unavailable: %s\n", mode, r.Unavailable[mode])
	}
	return nil
}

func formatPair(c geoutil.Coordinate) string {
	return fmt.Sprintf("%.6f,%.6f", c.Longitude, c.Latitude)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
