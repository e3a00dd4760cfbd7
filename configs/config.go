package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type MetaApp struct {
	AppID      string
	AppSecret  string
	APIVersion string
}

type LinkedInApp struct {
	ClientID     string
	ClientSecret string
	APIVersion   string
}

type TwitterApp struct {
	ClientID     string
	ClientSecret string
}

type GoogleApp struct {
	ClientID     string
	ClientSecret string
}

type Config struct {
	Meta        MetaApp
	LinkedIn    LinkedInApp
	Twitter     TwitterApp
	Google      GoogleApp
	PostgresURI string
	RedisURI    string
	BaseURL     string
	FrontendURL string
	R2          R2
	SecretKey   string
	CookieName  string
}

func LoadConfig() *Config {
	return &Config{
		Meta: MetaApp{
			AppID:      getEnv("META_APP_ID", ""),
			AppSecret:  getEnv("META_APP_SECRET", ""),
			APIVersion: getEnv("META_API_VERSION", "v21.0"),
		},
		LinkedIn: LinkedInApp{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			APIVersion:   getEnv("LINKEDIN_API_VERSION", "202501"),
		},
		Twitter: TwitterApp{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
		},
		Google: GoogleApp{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		},
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:3000"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "socialflow_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
