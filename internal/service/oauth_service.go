package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	cfg "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/secrets"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

// oauthStateTTL bounds how long an authorization round-trip (and the Meta
// page-selection session) may take.
const oauthStateTTL = 600 * time.Second

// OAuthService runs the authorization flows for all five platforms and owns
// integration persistence on completion. State values and PKCE verifiers
// live in Redis with a short TTL.
type OAuthService struct {
	config       cfg.Config
	rdb          *redis.Client
	integrations repository.IntegrationRepository
	store        *secrets.Store
	client       *http.Client
}

func NewOAuthService(config cfg.Config, rdb *redis.Client, integrations repository.IntegrationRepository, store *secrets.Store, client *http.Client) *OAuthService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuthService{
		config:       config,
		rdb:          rdb,
		integrations: integrations,
		store:        store,
		client:       client,
	}
}

type oauthState struct {
	Platform     string `json:"platform"`
	CodeVerifier string `json:"code_verifier,omitempty"`
	AccountName  string `json:"account_name,omitempty"`
	Description  string `json:"description,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// apply copies the connect-time labels onto the integration being saved.
// An explicit account name overrides the platform profile name.
func (r *oauthState) apply(integ *models.Integration) {
	if r.AccountName != "" {
		integ.AccountName = r.AccountName
	}
	integ.AccountDescription = r.Description
	integ.Organization = r.Organization
}

func (s *OAuthService) redirectURI(platform string) string {
	return s.config.BaseURL + "/auth/" + strings.ToLower(platform) + "/callback"
}

// Initiate builds the authorization URL for a platform and caches the state
// (with PKCE verifier for Twitter and any account labels) for the callback
// to verify.
func (s *OAuthService) Initiate(ctx context.Context, platform string, meta transfer.AccountMetadata) (*transfer.OAuthInitiation, error) {
	state, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	record := oauthState{
		Platform:     platform,
		AccountName:  meta.AccountName,
		Description:  meta.Description,
		Organization: meta.Organization,
	}
	var authURL string

	switch platform {
	case models.PlatformFacebook:
		authURL = s.metaDialogURL(state, platform,
			"pages_show_list,pages_manage_posts,pages_read_engagement,read_insights,business_management")
	case models.PlatformInstagram:
		authURL = s.metaDialogURL(state, platform,
			"pages_show_list,instagram_basic,instagram_content_publish,business_management")
	case models.PlatformLinkedIn:
		q := url.Values{}
		q.Set("response_type", "code")
		q.Set("client_id", s.config.LinkedIn.ClientID)
		q.Set("redirect_uri", s.redirectURI(platform))
		q.Set("state", state)
		q.Set("scope", "openid profile w_member_social")
		authURL = "https://www.linkedin.com/oauth/v2/authorization?" + q.Encode()
	case models.PlatformTwitter:
		verifier, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", 64)
		if err != nil {
			return nil, err
		}
		record.CodeVerifier = verifier
		sum := sha256.Sum256([]byte(verifier))
		challenge := base64.RawURLEncoding.EncodeToString(sum[:])

		q := url.Values{}
		q.Set("response_type", "code")
		q.Set("client_id", s.config.Twitter.ClientID)
		q.Set("redirect_uri", s.redirectURI(platform))
		q.Set("state", state)
		q.Set("scope", "tweet.read tweet.write users.read offline.access")
		q.Set("code_challenge", challenge)
		q.Set("code_challenge_method", "S256")
		authURL = "https://twitter.com/i/oauth2/authorize?" + q.Encode()
	case models.PlatformYouTube:
		conf := s.googleConfig()
		authURL = conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	default:
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}

	payload, _ := json.Marshal(record)
	if err := s.rdb.Set(ctx, "oauth_state:"+state, payload, oauthStateTTL).Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &transfer.OAuthInitiation{AuthorizationURL: authURL, State: state}, nil
}

func (s *OAuthService) metaDialogURL(state, platform, scope string) string {
	q := url.Values{}
	q.Set("client_id", s.config.Meta.AppID)
	q.Set("redirect_uri", s.redirectURI(platform))
	q.Set("state", state)
	q.Set("scope", scope)
	return fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth?%s", s.config.Meta.APIVersion, q.Encode())
}

func (s *OAuthService) googleConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.config.Google.ClientID,
		ClientSecret: s.config.Google.ClientSecret,
		RedirectURL:  s.redirectURI(models.PlatformYouTube),
		Endpoint:     google.Endpoint,
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube.upload",
			"https://www.googleapis.com/auth/youtube.readonly",
		},
	}
}

// consumeState validates and deletes the cached state, enforcing single use.
func (s *OAuthService) consumeState(ctx context.Context, state, platform string) (*oauthState, error) {
	key := "oauth_state:" + state
	payload, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("authorization session expired, please try again")
	}
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	s.rdb.Del(ctx, key)

	var record oauthState
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, err
	}
	if record.Platform != platform {
		return nil, fmt.Errorf("authorization state does not match this platform")
	}
	return &record, nil
}

// MetaCallbackResult is either a completed connection or a pending
// page-selection session.
type MetaCallbackResult struct {
	Completed     bool                `json:"completed"`
	IntegrationID int64               `json:"integration_id,omitempty"`
	SessionID     string              `json:"session_id,omitempty"`
	Pages         []transfer.MetaPage `json:"pages,omitempty"`
}

type metaPageSession struct {
	Platform     string              `json:"platform"`
	AccountName  string              `json:"account_name,omitempty"`
	Description  string              `json:"description,omitempty"`
	Organization string              `json:"organization,omitempty"`
	Pages        []transfer.MetaPage `json:"pages"`
}

// HandleMetaCallback finishes the Facebook/Instagram dialog: exchanges the
// code, upgrades to a long-lived token, lists manageable pages, and either
// connects the single page or opens a selection session.
func (s *OAuthService) HandleMetaCallback(ctx context.Context, platform, code, state string) (*MetaCallbackResult, error) {
	record, err := s.consumeState(ctx, state, platform)
	if err != nil {
		return nil, err
	}

	userToken, _, err := s.exchangeMetaCode(ctx, platform, code)
	if err != nil {
		return nil, err
	}
	longLived, expiresIn, err := s.extendMetaToken(ctx, userToken)
	if err != nil {
		return nil, err
	}

	pages, err := s.listMetaPages(ctx, longLived, platform)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		if platform == models.PlatformInstagram {
			return nil, fmt.Errorf("no Instagram business account is linked to your pages")
		}
		return nil, fmt.Errorf("this account manages no Facebook pages")
	}

	if len(pages) == 1 {
		id, err := s.connectMetaPage(ctx, platform, pages[0], expiresIn, record)
		if err != nil {
			return nil, err
		}
		return &MetaCallbackResult{Completed: true, IntegrationID: id}, nil
	}

	sessionID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	session := metaPageSession{
		Platform:     platform,
		AccountName:  record.AccountName,
		Description:  record.Description,
		Organization: record.Organization,
		Pages:        pages,
	}
	payload, _ := json.Marshal(session)
	if err := s.rdb.Set(ctx, "meta_pages:"+sessionID, payload, oauthStateTTL).Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	// Page tokens stay server-side; the selection UI only sees ids/names.
	public := make([]transfer.MetaPage, len(pages))
	for i, p := range pages {
		public[i] = transfer.MetaPage{ID: p.ID, Name: p.Name, InstagramID: p.InstagramID}
	}
	return &MetaCallbackResult{SessionID: sessionID, Pages: public}, nil
}

// SessionPages lists the pages of a pending selection session with tokens
// stripped, for the selection UI.
func (s *OAuthService) SessionPages(ctx context.Context, sessionID string) ([]transfer.MetaPage, error) {
	payload, err := s.rdb.Get(ctx, "meta_pages:"+sessionID).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("page selection session expired, please reconnect")
	}
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var session metaPageSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	public := make([]transfer.MetaPage, len(session.Pages))
	for i, p := range session.Pages {
		public[i] = transfer.MetaPage{ID: p.ID, Name: p.Name, InstagramID: p.InstagramID}
	}
	return public, nil
}

// ConnectMetaPage completes a pending page-selection session.
func (s *OAuthService) ConnectMetaPage(ctx context.Context, sessionID, pageID string) (int64, error) {
	key := "meta_pages:" + sessionID
	payload, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return 0, fmt.Errorf("page selection session expired, please reconnect")
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	var session metaPageSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return 0, err
	}
	for _, page := range session.Pages {
		if page.ID == pageID {
			s.rdb.Del(ctx, key)
			record := &oauthState{
				AccountName:  session.AccountName,
				Description:  session.Description,
				Organization: session.Organization,
			}
			return s.connectMetaPage(ctx, session.Platform, page, 0, record)
		}
	}
	return 0, fmt.Errorf("page not found in this session")
}

func (s *OAuthService) exchangeMetaCode(ctx context.Context, platform, code string) (string, int64, error) {
	q := url.Values{}
	q.Set("client_id", s.config.Meta.AppID)
	q.Set("client_secret", s.config.Meta.AppSecret)
	q.Set("redirect_uri", s.redirectURI(platform))
	q.Set("code", code)
	return s.metaTokenRequest(ctx, q)
}

func (s *OAuthService) extendMetaToken(ctx context.Context, token string) (string, int64, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", s.config.Meta.AppID)
	q.Set("client_secret", s.config.Meta.AppSecret)
	q.Set("fb_exchange_token", token)
	return s.metaTokenRequest(ctx, q)
}

func (s *OAuthService) metaTokenRequest(ctx context.Context, q url.Values) (string, int64, error) {
	endpoint := fmt.Sprintf("https://graph.facebook.com/%s/oauth/access_token?%s", s.config.Meta.APIVersion, q.Encode())
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		Error       *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := s.getJSON(ctx, endpoint, nil, &out); err != nil {
		return "", 0, err
	}
	if out.Error != nil {
		return "", 0, fmt.Errorf("%s", out.Error.Message)
	}
	if out.AccessToken == "" {
		return "", 0, fmt.Errorf("token exchange returned no access token")
	}
	return out.AccessToken, out.ExpiresIn, nil
}

func (s *OAuthService) listMetaPages(ctx context.Context, userToken, platform string) ([]transfer.MetaPage, error) {
	endpoint := fmt.Sprintf(
		"https://graph.facebook.com/%s/me/accounts?fields=id,name,access_token,instagram_business_account&access_token=%s",
		s.config.Meta.APIVersion, url.QueryEscape(userToken))
	var out struct {
		Data []struct {
			ID                       string `json:"id"`
			Name                     string `json:"name"`
			AccessToken              string `json:"access_token"`
			InstagramBusinessAccount *struct {
				ID string `json:"id"`
			} `json:"instagram_business_account"`
		} `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := s.getJSON(ctx, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%s", out.Error.Message)
	}

	var pages []transfer.MetaPage
	for _, p := range out.Data {
		page := transfer.MetaPage{ID: p.ID, Name: p.Name, AccessToken: p.AccessToken}
		if p.InstagramBusinessAccount != nil {
			page.InstagramID = p.InstagramBusinessAccount.ID
		}
		// Instagram connects only pages that have a linked business account.
		if platform == models.PlatformInstagram && page.InstagramID == "" {
			continue
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (s *OAuthService) connectMetaPage(ctx context.Context, platform string, page transfer.MetaPage, expiresIn int64, record *oauthState) (int64, error) {
	integ := &models.Integration{
		Platform:    platform,
		AccountName: page.Name,
		ProfileName: page.Name,
		Enabled:     true,
	}
	record.apply(integ)

	switch platform {
	case models.PlatformInstagram:
		integ.ProfileID = page.InstagramID
		integ.AccountType = models.AccountTypeBusiness
		integ.AccessToken = page.AccessToken
	default:
		integ.ProfileID = page.ID
		integ.PageID = page.ID
		integ.AccountType = models.AccountTypePage
		integ.PageAccessToken = page.AccessToken
	}

	return s.saveIntegration(ctx, integ, expiresIn)
}

// HandleLinkedInCallback exchanges the code and reads the member profile via
// the OpenID userinfo endpoint.
func (s *OAuthService) HandleLinkedInCallback(ctx context.Context, code, state string) (int64, error) {
	record, err := s.consumeState(ctx, state, models.PlatformLinkedIn)
	if err != nil {
		return 0, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", s.redirectURI(models.PlatformLinkedIn))
	form.Set("client_id", s.config.LinkedIn.ClientID)
	form.Set("client_secret", s.config.LinkedIn.ClientSecret)

	var token transfer.TokenResponse
	if err := s.postForm(ctx, "https://www.linkedin.com/oauth/v2/accessToken", form, nil, &token); err != nil {
		return 0, err
	}
	if token.AccessToken == "" {
		return 0, fmt.Errorf("token exchange returned no access token")
	}

	var profile struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	headers := map[string]string{"Authorization": "Bearer " + token.AccessToken}
	if err := s.getJSON(ctx, "https://api.linkedin.com/v2/userinfo", headers, &profile); err != nil {
		return 0, err
	}
	if profile.Sub == "" {
		return 0, fmt.Errorf("could not read the LinkedIn profile")
	}

	integ := &models.Integration{
		Platform:     models.PlatformLinkedIn,
		ProfileID:    profile.Sub,
		ProfileName:  profile.Name,
		ProfileImage: profile.Picture,
		AccountName:  profile.Name,
		AccountType:  models.AccountTypePersonal,
		Enabled:      true,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	record.apply(integ)
	return s.saveIntegration(ctx, integ, token.ExpiresIn)
}

// HandleTwitterCallback exchanges the code with the cached PKCE verifier and
// reads the authorizing user.
func (s *OAuthService) HandleTwitterCallback(ctx context.Context, code, state string) (int64, error) {
	record, err := s.consumeState(ctx, state, models.PlatformTwitter)
	if err != nil {
		return 0, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", s.redirectURI(models.PlatformTwitter))
	form.Set("client_id", s.config.Twitter.ClientID)
	form.Set("code_verifier", record.CodeVerifier)

	headers := map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString(
			[]byte(s.config.Twitter.ClientID+":"+s.config.Twitter.ClientSecret)),
	}

	var token transfer.TokenResponse
	if err := s.postForm(ctx, "https://api.twitter.com/2/oauth2/token", form, headers, &token); err != nil {
		return 0, err
	}
	if token.AccessToken == "" {
		return 0, fmt.Errorf("token exchange returned no access token")
	}

	var me struct {
		Data struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"data"`
	}
	userHeaders := map[string]string{"Authorization": "Bearer " + token.AccessToken}
	if err := s.getJSON(ctx, "https://api.twitter.com/2/users/me", userHeaders, &me); err != nil {
		return 0, err
	}
	if me.Data.ID == "" {
		return 0, fmt.Errorf("could not read the Twitter profile")
	}

	integ := &models.Integration{
		Platform:     models.PlatformTwitter,
		ProfileID:    me.Data.ID,
		ProfileName:  me.Data.Name,
		AccountName:  me.Data.Username,
		AccountType:  models.AccountTypePersonal,
		Enabled:      true,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	record.apply(integ)
	return s.saveIntegration(ctx, integ, token.ExpiresIn)
}

// HandleGoogleCallback exchanges the code through the oauth2 package and
// resolves the authorizing user's channel.
func (s *OAuthService) HandleGoogleCallback(ctx context.Context, code, state string) (int64, error) {
	record, err := s.consumeState(ctx, state, models.PlatformYouTube)
	if err != nil {
		return 0, err
	}

	conf := s.googleConfig()
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	channelID, channelTitle, thumbnail, err := s.fetchChannel(ctx, token.AccessToken)
	if err != nil {
		return 0, err
	}

	expiresIn := int64(0)
	if !token.Expiry.IsZero() {
		expiresIn = int64(time.Until(token.Expiry).Seconds())
	}

	integ := &models.Integration{
		Platform:     models.PlatformYouTube,
		ProfileID:    channelID,
		ProfileName:  channelTitle,
		ProfileImage: thumbnail,
		AccountName:  channelTitle,
		AccountType:  models.AccountTypeChannel,
		Enabled:      true,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	record.apply(integ)
	return s.saveIntegration(ctx, integ, expiresIn)
}

func (s *OAuthService) fetchChannel(ctx context.Context, accessToken string) (id, title, thumbnail string, err error) {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	var out struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title      string `json:"title"`
				Thumbnails struct {
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	endpoint := "https://www.googleapis.com/youtube/v3/channels?part=snippet&mine=true"
	if err := s.getJSON(ctx, endpoint, headers, &out); err != nil {
		return "", "", "", err
	}
	if len(out.Items) == 0 {
		return "", "", "", fmt.Errorf("no YouTube channel found for this account")
	}
	item := out.Items[0]
	return item.ID, item.Snippet.Title, item.Snippet.Thumbnails.Default.URL, nil
}

// saveIntegration encrypts credentials and upserts by (platform, profile_id)
// so reconnecting an account reuses its row and history.
func (s *OAuthService) saveIntegration(ctx context.Context, integ *models.Integration, expiresIn int64) (int64, error) {
	var err error
	if integ.AccessToken, err = s.store.Encrypt(integ.AccessToken); err != nil {
		return 0, err
	}
	if integ.RefreshToken, err = s.store.Encrypt(integ.RefreshToken); err != nil {
		return 0, err
	}
	if integ.PageAccessToken, err = s.store.Encrypt(integ.PageAccessToken); err != nil {
		return 0, err
	}

	integ.ConnectionStatus = models.ConnectionConnected
	if expiresIn > 0 {
		expiry := time.Now().Add(time.Duration(expiresIn) * time.Second)
		integ.TokenExpiry = &expiry
	}

	existing, err := s.integrations.GetByPlatformProfile(ctx, integ.Platform, integ.ProfileID)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return s.integrations.Create(ctx, integ)
	}

	existing.ProfileName = integ.ProfileName
	existing.ProfileImage = integ.ProfileImage
	existing.AccountName = integ.AccountName
	existing.AccountDescription = integ.AccountDescription
	existing.Organization = integ.Organization
	existing.AccountType = integ.AccountType
	existing.Enabled = true
	existing.PageID = integ.PageID
	existing.PageAccessToken = integ.PageAccessToken
	existing.AccessToken = integ.AccessToken
	if integ.RefreshToken != "" {
		existing.RefreshToken = integ.RefreshToken
	}
	existing.ConnectionStatus = models.ConnectionConnected
	existing.LastError = ""
	existing.LastErrorTime = nil
	existing.TokenExpiry = integ.TokenExpiry
	if err := s.integrations.Update(ctx, existing); err != nil {
		return 0, err
	}
	return existing.ID, nil
}

func (s *OAuthService) getJSON(ctx context.Context, endpoint string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.doJSON(req, out)
}

func (s *OAuthService) postForm(ctx context.Context, endpoint string, form url.Values, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.doJSON(req, out)
}

func (s *OAuthService) doJSON(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, msg)
	}
	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}
