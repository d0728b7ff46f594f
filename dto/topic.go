package dto

type DiscoverTopicsRequest struct {
	Query    string `json:"query" validate:"required,min=3,max=300"`
	Industry string `json:"industry" validate:"max=200"`
	Count    int    `json:"count" validate:"omitempty,min=1,max=10"`
}

func (r DiscoverTopicsRequest) Validate() error {
	return GetValidator().Struct(r)
}

type TopicSuggestion struct {
	Title      string `json:"title"`
	Angle      string `json:"angle"`
	SourceURL  string `json:"source_url,omitempty"`
	SourceKind string `json:"source_kind,omitempty"`
}

type DiscoverTopicsResponse struct {
	Query  string            `json:"query"`
	Topics []TopicSuggestion `json:"topics"`
	Cached bool              `json:"cached"`
}
