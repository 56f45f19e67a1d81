// Package models defines data structures used across the application.
// File: models/content.go
package models

import (
	"encoding/json"
	"os"
)

// ----------------------- site content models -----------------------

// Banner is one home-page carousel slide.
type Banner struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"imageUrl"`
	LinkURL  string `json:"linkUrl,omitempty"`
}

// NewsItem is one entry in the home-page news carousel.
type NewsItem struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Excerpt string `json:"excerpt,omitempty"`
	LinkURL string `json:"linkUrl,omitempty"`
}

// Program is one degree program shown on the programs page.
type Program struct {
	Name        string `json:"name"`
	Level       string `json:"level"` // bachelor | master | doctoral
	Description string `json:"description,omitempty"`
}

// SiteContent holds the marketing content rendered by the public pages.
type SiteContent struct {
	Banners  []Banner   `json:"banners"`
	News     []NewsItem `json:"news"`
	Programs []Program  `json:"programs"`
}

// LoadSiteContent reads site content from the JSON content file
// (SITE_CONTENT_PATH, default ./config/site_content.json).
func LoadSiteContent() (*SiteContent, error) {
	contentPath := os.Getenv("SITE_CONTENT_PATH")
	if contentPath == "" {
		contentPath = "./config/site_content.json"
	}

	data, err := os.ReadFile(contentPath) // #nosec G304
	if err != nil {
		return nil, err
	}

	var content SiteContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, err
	}
	return &content, nil
}
