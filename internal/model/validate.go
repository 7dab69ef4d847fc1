package model

import (
	"net/url"
	"strings"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/errs"
)

// ValidateURLPair enforces the §3 ComparisonJob invariant: both URLs
// present, absolute, and distinct.
func ValidateURLPair(baselineURL, candidateURL string) error {
	if strings.TrimSpace(baselineURL) == "" {
		return errs.InvalidInput("baselineUrl", "must not be empty")
	}
	if strings.TrimSpace(candidateURL) == "" {
		return errs.InvalidInput("candidateUrl", "must not be empty")
	}
	if err := validateAbsoluteURL("baselineUrl", baselineURL); err != nil {
		return err
	}
	if err := validateAbsoluteURL("candidateUrl", candidateURL); err != nil {
		return err
	}
	if baselineURL == candidateURL {
		return errs.InvalidInput("candidateUrl", "must differ from baselineUrl")
	}
	return nil
}

func validateAbsoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errs.InvalidInput(field, "must be an absolute URL")
	}
	return nil
}

// ValidateCrawlConfig enforces depth>=0 and maxPages>=1 when the fields are
// explicitly set (zero values are filled by defaults upstream, so this is
// only invoked after defaulting).
func ValidateCrawlConfig(c CrawlConfig) error {
	if c.MaxDepth < 0 {
		return errs.InvalidInput("crawlConfig.maxDepth", "must be >= 0")
	}
	if c.MaxPages < 1 {
		return errs.InvalidInput("crawlConfig.maxPages", "must be >= 1")
	}
	return nil
}

// ValidateName enforces the non-empty name rule for job creation.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errs.InvalidInput("name", "must not be empty")
	}
	return nil
}
