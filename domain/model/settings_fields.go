package model

import (
	"fmt"
	"strings"
	"time"
)

// FieldKind is the stored type of a flat settings field.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldBool
	FieldTime
)

type settingsField struct {
	Kind   FieldKind
	Secret bool
}

var settingsFields = map[string]settingsField{
	"facebookEnabled":         {Kind: FieldBool},
	"facebookAppId":           {},
	"facebookAppSecret":       {Secret: true},
	"facebookPageId":          {},
	"facebookPageAccessToken": {Secret: true},
	"facebookUserAccessToken": {Secret: true},
	"facebookTokenExpiresAt":  {Kind: FieldTime},

	"twitterEnabled":           {Kind: FieldBool},
	"twitterApiKey":            {Secret: true},
	"twitterApiSecret":         {Secret: true},
	"twitterAccessToken":       {Secret: true},
	"twitterAccessTokenSecret": {Secret: true},
	"twitterBearerToken":       {Secret: true},

	"linkedinEnabled":        {Kind: FieldBool},
	"linkedinClientId":       {},
	"linkedinClientSecret":   {Secret: true},
	"linkedinAccessToken":    {Secret: true},
	"linkedinRefreshToken":   {Secret: true},
	"linkedinOrganizationId": {},
	"linkedinTokenExpiresAt": {Kind: FieldTime},

	"instagramEnabled":           {Kind: FieldBool},
	"instagramAppId":             {},
	"instagramBusinessAccountId": {},
	"instagramAccessToken":       {Secret: true},
	"instagramTokenExpiresAt":    {Kind: FieldTime},

	"telegramEnabled":         {Kind: FieldBool},
	"telegramBotToken":        {Secret: true},
	"telegramChannelId":       {},
	"telegramChannelUsername": {},
}

// IsSecretField reports whether the field must be masked on read.
func IsSecretField(name string) bool {
	return settingsFields[name].Secret
}

// PlatformOfField returns the platform a flat field belongs to.
func PlatformOfField(name string) (Platform, bool) {
	if _, ok := settingsFields[name]; !ok {
		return "", false
	}
	for _, p := range AllPlatforms {
		if strings.HasPrefix(name, string(p)) {
			return p, true
		}
	}
	return "", false
}

// CoerceSettingsPatch checks field names and converts JSON-decoded values into
// their stored types. Time fields accept RFC3339 strings, nil clears a field.
func CoerceSettingsPatch(patch map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(patch))
	for k, v := range patch {
		f, ok := settingsFields[k]
		if !ok {
			return nil, fmt.Errorf("unknown settings field %q", k)
		}
		if v == nil {
			out[k] = nil
			continue
		}
		switch f.Kind {
		case FieldBool:
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("settings field %q must be a boolean", k)
			}
			out[k] = b
		case FieldTime:
			switch t := v.(type) {
			case time.Time:
				out[k] = t.UTC()
			case string:
				parsed, err := time.Parse(time.RFC3339, t)
				if err != nil {
					return nil, fmt.Errorf("settings field %q: %w", k, err)
				}
				out[k] = parsed.UTC()
			default:
				return nil, fmt.Errorf("settings field %q must be an RFC3339 timestamp", k)
			}
		default:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("settings field %q must be a string", k)
			}
			out[k] = strings.TrimSpace(s)
		}
	}
	return out, nil
}

// MaskSecret keeps the last four characters of a secret.
func MaskSecret(v string) string {
	if v == "" {
		return ""
	}
	r := []rune(v)
	if len(r) <= 4 {
		return "****"
	}
	return "****" + string(r[len(r)-4:])
}
