package wallpaper

// SourceImage is the encoded upload. It is never modified after creation;
// selecting a new file replaces it wholesale.
type SourceImage struct {
	EncodedBytes string `json:"-"`
	MediaType    string `json:"mediaType"`
	PreviewURI   string `json:"previewUri"`
	Name         string `json:"name,omitempty"`
	Size         int    `json:"size"`
}
