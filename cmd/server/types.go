package main

// AnchorDTO describes one anchor's image in API responses
type AnchorDTO struct {
	ID        string `json:"id"`
	Format    string `json:"format,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	SizeBytes int    `json:"size_bytes"`
	Size      string `json:"size"`

	// ProbeError is set when the image bytes are not a recognised format
	ProbeError string `json:"probe_error,omitempty"`
}

// MapResponse is the response for GET /api/map
type MapResponse struct {
	WorldMapBytes       int         `json:"world_map_bytes"`
	WorldMapStoredBytes int         `json:"world_map_stored_bytes"`
	ImageMapStoredBytes int         `json:"image_map_stored_bytes"`
	Anchors             []AnchorDTO `json:"anchors"`
	Count               int         `json:"count"`
}

// MetricsResponse provides server health and storage metrics
type MetricsResponse struct {
	Status        string `json:"status"`
	Backend       string `json:"backend"`
	DataDir       string `json:"data_dir"`
	WorldMapBytes int    `json:"world_map_bytes"`
	ImageMapBytes int    `json:"image_map_bytes"`
	ImageCount    int    `json:"image_count"`
	Sealed        bool   `json:"sealed"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
