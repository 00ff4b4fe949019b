package config

// Persistent state keys (Registry)
const (
	KeyPlaybackSpeed  = "playback_speed"
	KeySpeedOptions   = "speed_options"
	KeyExportDir      = "export_dir"
	KeyMapStyle       = "map_style"
	KeyFollowAircraft = "follow_aircraft"
	KeyActiveChart    = "active_chart"
	KeyLastFlight     = "last_flight"
	KeyRetention      = "library_retention"
)

// Map styles offered by the viewer.
const (
	MapStyleStreets   = "streets"
	MapStyleSatellite = "satellite"
	MapStyleTerrain   = "terrain"
)
