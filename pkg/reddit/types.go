package reddit

// Post is a link submission as returned by the Reddit search listing.
// It is never persisted.
type Post struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"` // fullname, e.g. t3_abc123
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Score       int     `json:"score"`
	Ups         int     `json:"ups"`
	NumComments int     `json:"num_comments"`
	Locked      bool    `json:"locked"`
	Archived    bool    `json:"archived"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Engagement is the ranking proxy: score plus comment count.
func (p Post) Engagement() int {
	return p.Score + p.NumComments
}

// SearchOptions mirrors the query parameters of GET /search.
type SearchOptions struct {
	Query string
	Time  string // hour, day, week, month, year, all
	Limit int
	Sort  string // relevance, hot, top, new, comments
}

// CommentAck is the provider acknowledgment of a submitted comment.
type CommentAck struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Permalink string `json:"permalink"`
	Body      string `json:"body"`
	ParentID  string `json:"parent_id"`
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data Post   `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type commentResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
		Data   struct {
			Things []struct {
				Kind string     `json:"kind"`
				Data CommentAck `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}
