package tts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// signURL returns hostURL with the authorization, date and host query
// parameters. The signature is HMAC-SHA256 over
// "host: <host>\ndate: <date>\nGET <path> HTTP/1.1" keyed with apiSecret.
func signURL(hostURL, apiKey, apiSecret string, now time.Time) (string, error) {
	if apiKey == "" || apiSecret == "" {
		return "", errors.New("api key and secret are required")
	}
	u, err := url.Parse(hostURL)
	if err != nil {
		return "", fmt.Errorf("parse host url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("host url %q has no host", hostURL)
	}

	date := now.UTC().Format(http.TimeFormat)
	signature := hmacSHA256(requestOrigin(u.Host, date, u.Path), apiSecret)
	authorization := fmt.Sprintf(
		`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		apiKey, signature,
	)

	q := url.Values{}
	q.Set("authorization", base64.StdEncoding.EncodeToString([]byte(authorization)))
	q.Set("date", date)
	q.Set("host", u.Host)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func requestOrigin(host, date, path string) string {
	return fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", host, date, path)
}

func hmacSHA256(data, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
