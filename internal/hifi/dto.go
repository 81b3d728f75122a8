package hifi

import (
	"bytes"
	"encoding/json"
)

// flexID decodes an id that the API serves either as a JSON number or a
// string. Entity ids are numeric on the wire, playlist ids are UUIDs.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// pagedList is the envelope of every list endpoint
type pagedList struct {
	Items              []json.RawMessage `json:"items"`
	TotalNumberOfItems int               `json:"totalNumberOfItems"`
	Offset             int               `json:"offset"`
	Limit              int               `json:"limit"`
}

// wrappedItem is a list element that nests the entity under "item"
// (playlist entries, favorites listings)
type wrappedItem struct {
	Type string          `json:"type"`
	Item json.RawMessage `json:"item"`
}

type artistJSON struct {
	ID      flexID `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type albumJSON struct {
	ID              flexID       `json:"id"`
	Title           string       `json:"title"`
	Duration        int          `json:"duration"` // seconds
	NumberOfTracks  int          `json:"numberOfTracks"`
	NumberOfVolumes int          `json:"numberOfVolumes"`
	ReleaseDate     string       `json:"releaseDate"`     // "2006-01-02"
	StreamStartDate string       `json:"streamStartDate"` // ISO 8601
	Cover           string       `json:"cover"`
	Explicit        bool         `json:"explicit"`
	Artist          *artistJSON  `json:"artist"`
	Artists         []artistJSON `json:"artists"`
}

type trackJSON struct {
	ID             flexID       `json:"id"`
	Title          string       `json:"title"`
	Duration       int          `json:"duration"`
	TrackNumber    int          `json:"trackNumber"`
	VolumeNumber   int          `json:"volumeNumber"`
	Explicit       bool         `json:"explicit"`
	StreamReady    bool         `json:"streamReady"`
	AllowStreaming bool         `json:"allowStreaming"`
	Artist         *artistJSON  `json:"artist"`
	Artists        []artistJSON `json:"artists"`
	Album          *albumJSON   `json:"album"`
}

type videoJSON struct {
	ID             flexID       `json:"id"`
	Title          string       `json:"title"`
	Duration       int          `json:"duration"`
	Quality        string       `json:"quality"`
	ReleaseDate    string       `json:"releaseDate"`
	StreamReady    bool         `json:"streamReady"`
	AllowStreaming bool         `json:"allowStreaming"`
	Artist         *artistJSON  `json:"artist"`
	Artists        []artistJSON `json:"artists"`
}

type playlistJSON struct {
	UUID           string `json:"uuid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	NumberOfTracks int    `json:"numberOfTracks"`
	NumberOfVideos int    `json:"numberOfVideos"`
	Duration       int    `json:"duration"`
	LastUpdated    string `json:"lastUpdated"`
	Image          string `json:"image"`
}

type promotionJSON struct {
	Type       string `json:"type"`
	ArtifactID flexID `json:"artifactId"`
	Header     string `json:"header"`
	SubHeader  string `json:"subHeader"`
	Text       string `json:"text"`
	ImageID    string `json:"imageId"`
	Group      string `json:"group"`
	Created    string `json:"created"`
}

type loginJSON struct {
	UserID      flexID `json:"userId"`
	SessionID   string `json:"sessionId"`
	CountryCode string `json:"countryCode"`
}

type countryJSON struct {
	CountryCode string `json:"countryCode"`
}

type subscriptionJSON struct {
	Subscription struct {
		Type string `json:"type"` // "HIFI", "PREMIUM" or "FREE"
	} `json:"subscription"`
	HighestSoundQuality string `json:"highestSoundQuality"`
	Status              string `json:"status"`
}

type streamURLJSON struct {
	URL          string `json:"url"`
	SoundQuality string `json:"soundQuality"`
	Codec        string `json:"codec"`
}

// errorJSON is the machine-readable reason carried by non-2xx responses
type errorJSON struct {
	Status      int    `json:"status"`
	SubStatus   int    `json:"subStatus"`
	UserMessage string `json:"userMessage"`
}
