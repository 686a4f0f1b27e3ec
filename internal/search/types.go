// Package search defines the wire-level data model shared by every search
// backend adapter: queries going out, the Tavily-compatible envelope coming
// back.
package search

// Topic shapes the default time range and result categories a backend
// requests.
type Topic string

const (
	TopicGeneral Topic = "general"
	TopicNews    Topic = "news"
	TopicFinance Topic = "finance"
)

// TimeRange is the coarse recency filter accepted by SearchOnly.
type TimeRange string

const (
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// SearchDepth selects how much effort a SearchOnly backend spends per query.
type SearchDepth string

const (
	SearchDepthBasic    SearchDepth = "basic"
	SearchDepthAdvanced SearchDepth = "advanced"
)

// Query is the immutable input to a single backend call. One Query yields
// exactly one BackendResponse.
type Query struct {
	Text              string
	Topic             Topic
	MaxResults        int
	IncludeRawContent bool

	// SearchOnly extras. Zero values mean "unset"; adapters fill in
	// defaults (see Adapter implementations).
	TimeRange       TimeRange
	DateFrom        string
	DateTo          string
	Days            int
	IncludeDomains  []string
	ExcludeDomains  []string
	Language        string
	Engines         []string
	SafeSearch      string
	SearchDepth     SearchDepth
	IncludeAnswer   bool
	IncludeImages   bool
	LLMAnswerModel  string
	RequestTimeout  int // seconds; 0 means adapter default
	APIKey          string
}

// Result is a single hit inside a BackendResponse. URL is its identity: two
// Results sharing a URL collide during normalization, first occurrence wins.
type Result struct {
	URL           string
	Title         string
	Snippet       string
	RawContent    string // full page markdown/text, only populated by SearchAndCrawl
	Score         float64
	ImageSrc      string
	PublishedDate string
}

// BackendResponse is the Tavily-compatible envelope every adapter returns,
// success or failure. Response-level errors are non-fatal: an empty Results
// slice with Error populated.
type BackendResponse struct {
	Query             string
	Results           []Result
	Answer            string
	Images            []string
	FollowUpQuestions []string
	Error             string
	ResponseTimeSec   float64
}

// Failed reports whether the envelope carries a non-fatal backend error.
func (r BackendResponse) Failed() bool {
	return r.Error != ""
}
