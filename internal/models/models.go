package models

// IncomingMessage is the gateway-independent view of a Telegram message.
type IncomingMessage struct {
	UpdateID  int
	MessageID int
	ChatID    int64
	From      string
	Text      string
	ReplyTo   *IncomingMessage
	Photos    []PhotoSize // ordered by size, largest last
}

type PhotoSize struct {
	FileID   string
	Width    int
	Height   int
	FileSize int
}

func (m *IncomingMessage) IsReply() bool {
	return m.ReplyTo != nil
}

func (m *IncomingMessage) HasPhoto() bool {
	return len(m.Photos) > 0
}

// LargestPhoto returns the highest resolution photo size.
func (m *IncomingMessage) LargestPhoto() (PhotoSize, bool) {
	if !m.HasPhoto() {
		return PhotoSize{}, false
	}
	return m.Photos[len(m.Photos)-1], true
}

type LinkKind string

const (
	LinkKindTikTok  LinkKind = "tiktok"
	LinkKindReel    LinkKind = "reel"
	LinkKindSpotify LinkKind = "spotify"
)

// Link is a recognised media link found in a message.
type Link struct {
	Kind LinkKind
	URL  string
	// Short is set for vm.tiktok.com links that still need expanding.
	Short bool
}

type MediaKind string

const (
	MediaKindVideo     MediaKind = "video"
	MediaKindAudio     MediaKind = "audio"
	MediaKindAnimation MediaKind = "animation"
)

// MediaFile is a file staged on local disk for a single send.
type MediaFile struct {
	Path     string
	Name     string
	Kind     MediaKind
	MimeType string
	Size     int64
	Title    string
}
