package models

import "time"

// Platform names. The provider set is closed; these are the only valid values.
const (
	PlatformFacebook  = "Facebook"
	PlatformInstagram = "Instagram"
	PlatformLinkedIn  = "LinkedIn"
	PlatformTwitter   = "Twitter"
	PlatformYouTube   = "YouTube"
)

func AllPlatforms() []string {
	return []string{PlatformFacebook, PlatformInstagram, PlatformLinkedIn, PlatformTwitter, PlatformYouTube}
}

// Connection health states for an integration.
const (
	ConnectionConnected    = "Connected"
	ConnectionNotConnected = "Not Connected"
	ConnectionExpired      = "Expired"
	ConnectionError        = "Error"
)

// Account types by platform: Personal (Twitter/LinkedIn), Business (Instagram),
// Page (Facebook), Channel (YouTube).
const (
	AccountTypePersonal = "Personal"
	AccountTypeBusiness = "Business"
	AccountTypePage     = "Page"
	AccountTypeChannel  = "Channel"
)

// Integration is one authorized connection to one external platform account.
// All *Token fields hold ciphertext; decryption happens through the secret
// store only inside providers and the token service.
type Integration struct {
	ID                 int64      `db:"id" json:"id"`
	Platform           string     `db:"platform" json:"platform"`
	ProfileID          string     `db:"profile_id" json:"profile_id"`
	ProfileName        string     `db:"profile_name" json:"profile_name"`
	ProfileImage       string     `db:"profile_image" json:"profile_image"`
	AccountType        string     `db:"account_type" json:"account_type"`
	AccountName        string     `db:"account_name" json:"account_name"`
	AccountDescription string     `db:"account_description" json:"account_description"`
	Organization       string     `db:"organization" json:"organization"`
	Enabled            bool       `db:"enabled" json:"enabled"`
	AccessToken        string     `db:"access_token" json:"-"`
	RefreshToken       string     `db:"refresh_token" json:"-"`
	PageID             string     `db:"page_id" json:"page_id"`
	PageAccessToken    string     `db:"page_access_token" json:"-"`
	OAuth1Token        string     `db:"oauth1_token" json:"-"`
	OAuth1Secret       string     `db:"oauth1_secret" json:"-"`
	ConnectionStatus   string     `db:"connection_status" json:"connection_status"`
	LastError          string     `db:"last_error" json:"last_error"`
	LastErrorTime      *time.Time `db:"last_error_time" json:"last_error_time"`
	TokenExpiry        *time.Time `db:"token_expiry" json:"token_expiry"`
	FollowersCount     int64      `db:"followers_count" json:"followers_count"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTokenExpired reports whether a recorded expiry is in the past. Tokens
// without expiry metadata are treated as long-lived.
func (i *Integration) IsTokenExpired() bool {
	if i.TokenExpiry == nil {
		return false
	}
	return i.TokenExpiry.Before(time.Now())
}

// IsTokenExpiringSoon reports whether the token expires within the given
// number of days.
func (i *Integration) IsTokenExpiringSoon(days int) bool {
	if i.TokenExpiry == nil {
		return false
	}
	threshold := time.Now().AddDate(0, 0, days)
	return i.TokenExpiry.Before(threshold)
}

// UpdateTokens applies any provided credentials, recomputes expiry from
// expiresIn seconds, marks the integration Connected and clears the last
// error. Empty arguments leave the corresponding field untouched.
func (i *Integration) UpdateTokens(accessToken, refreshToken string, expiresIn int64) {
	if accessToken != "" {
		i.AccessToken = accessToken
	}
	if refreshToken != "" {
		i.RefreshToken = refreshToken
	}
	if expiresIn > 0 {
		expiry := time.Now().Add(time.Duration(expiresIn) * time.Second)
		i.TokenExpiry = &expiry
	}
	i.ConnectionStatus = ConnectionConnected
	i.LastError = ""
	i.LastErrorTime = nil
}

// MarkAsError records a failure on the integration without touching
// credentials.
func (i *Integration) MarkAsError(message string) {
	now := time.Now()
	i.ConnectionStatus = ConnectionError
	i.LastError = message
	i.LastErrorTime = &now
}

// Disconnect clears every credential field and sets Not Connected. Profile
// identity is preserved so a reconnect reuses the same row.
func (i *Integration) Disconnect() {
	i.AccessToken = ""
	i.RefreshToken = ""
	i.PageAccessToken = ""
	i.OAuth1Token = ""
	i.OAuth1Secret = ""
	i.ConnectionStatus = ConnectionNotConnected
}
