package griddto

// RenderRequest is the JSON body accepted by POST /render and /render.json.
// Positions are rendered in order; blank entries are dropped and only the
// first twelve are used.
type RenderRequest struct {
	Positions []string `json:"positions"`
}

// RenderResponse is returned by POST /render.json.
type RenderResponse struct {
	DataURL  string `json:"data_url"`
	Boards   int    `json:"boards"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileName string `json:"file_name"`
	Message  string `json:"message,omitempty"`
}

type Health struct {
	Ready   bool   `json:"ready"`
	Glyphs  int    `json:"glyphs"`
	Missing string `json:"missing,omitempty"`
}
