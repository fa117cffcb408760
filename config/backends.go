package config

import "strings"

// BackendsConfig holds the base URLs of the platform's backend services.
type BackendsConfig struct {
	AuthURL    string `env:"API_AUTH_URL"    envDefault:"http://localhost:8001"`
	ResumeURL  string `env:"API_RESUME_URL"  envDefault:"http://localhost:8002"`
	JobURL     string `env:"API_JOB_URL"     envDefault:"http://localhost:8003"`
	OfferURL   string `env:"API_OFFER_URL"   envDefault:"http://localhost:8004"`
	CompanyURL string `env:"API_COMPANY_URL" envDefault:"http://localhost:8005"`
}

// Sanitize trims whitespace and trailing slashes.
func (b *BackendsConfig) Sanitize() {
	for _, p := range []*string{&b.AuthURL, &b.ResumeURL, &b.JobURL, &b.OfferURL, &b.CompanyURL} {
		*p = strings.TrimRight(strings.TrimSpace(*p), "/")
	}
}
