package model

// Article is one RSS feed item reduced to plain text.
type Article struct {
	PubDate string `json:"pubDate"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
