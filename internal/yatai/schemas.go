package yatai

// User is the account the API token belongs to.
type User struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Organization is the organization the API token acts in.
type Organization struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TransmissionStrategyProxy asks clients to download through yatai itself.
const TransmissionStrategyProxy = "proxy"

// UploadStatusSuccess marks a bento whose archive is fully uploaded.
const UploadStatusSuccess = "success"

// Bento describes one version of a bento stored in yatai.
type Bento struct {
	UID                  string `json:"uid"`
	Name                 string `json:"name"`
	Version              string `json:"version"`
	Description          string `json:"description"`
	UploadStatus         string `json:"upload_status"`
	PresignedDownloadURL string `json:"presigned_download_url"`
	TransmissionStrategy string `json:"transmission_strategy,omitempty"`
	Repository           struct {
		Name string `json:"name"`
	} `json:"repository"`
}

// BentoRepository groups the versions of one bento name.
type BentoRepository struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	LatestBento *Bento `json:"latest_bento"`
}

type errorMessage struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
