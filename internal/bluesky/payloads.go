package bluesky

// The AT protocol is field-name-exact and case-sensitive, so every endpoint
// gets explicit request/response types rather than ad hoc maps.

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type createSessionResponse struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
	Handle    string `json:"handle"`
}

// BlobLink is the content-addressed reference inside a blob descriptor.
type BlobLink struct {
	Link string `json:"$link"`
}

// BlobRef is the descriptor a PDS returns after accepting an upload. The
// whole descriptor, not just the link, must be echoed into the post record.
type BlobRef struct {
	Type     string   `json:"$type,omitempty"`
	Ref      BlobLink `json:"ref"`
	MimeType string   `json:"mimeType"`
	Size     int64    `json:"size"`
}

type uploadBlobResponse struct {
	Blob BlobRef `json:"blob"`
}

type imageEmbedEntry struct {
	Alt   string  `json:"alt"`
	Image BlobRef `json:"image"`
}

type imagesEmbed struct {
	Type   string            `json:"$type"`
	Images []imageEmbedEntry `json:"images"`
}

type postRecord struct {
	Type      string       `json:"$type"`
	Text      string       `json:"text"`
	Embed     *imagesEmbed `json:"embed,omitempty"`
	CreatedAt string       `json:"createdAt"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}
