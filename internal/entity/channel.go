package entity

// ChannelDescriptor is one configured live channel. The order of descriptors
// in the channel file defines the order of the published playlist.
type ChannelDescriptor struct {
	ID        string
	Name      string
	SourceURL string
	// Extractor is the extraction strategy tag; empty means the service default.
	Extractor string
}
