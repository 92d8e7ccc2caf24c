package model

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	numericID        = regexp.MustCompile(`^[0-9]+$`)
	telegramChatID   = regexp.MustCompile(`^(-100[0-9]+|-?[0-9]+|@[A-Za-z0-9_]{5,})$`)
	telegramUsername = regexp.MustCompile(`^@?[A-Za-z0-9_]{5,}$`)
)

// Validate checks the format of the enabled sections. Disabled sections are not checked.
// The result is a validation.Errors keyed by platform.
func (s SocialMediaSettings) Validate() error {
	errs := validation.Errors{}
	fb := s.Facebook
	errs[string(PlatformFacebook)] = validation.ValidateStruct(&fb,
		validation.Field(&fb.PageID, validation.When(fb.Enabled, validation.Match(numericID))),
		validation.Field(&fb.AppID, validation.When(fb.Enabled, validation.Match(numericID))),
	)
	li := s.LinkedIn
	errs[string(PlatformLinkedIn)] = validation.ValidateStruct(&li,
		validation.Field(&li.OrganizationID, validation.When(li.Enabled, validation.Match(numericID))),
	)
	ig := s.Instagram
	errs[string(PlatformInstagram)] = validation.ValidateStruct(&ig,
		validation.Field(&ig.BusinessAccountID, validation.When(ig.Enabled, validation.Match(numericID))),
	)
	tg := s.Telegram
	errs[string(PlatformTelegram)] = validation.ValidateStruct(&tg,
		validation.Field(&tg.ChannelID, validation.When(tg.Enabled, validation.Match(telegramChatID))),
		validation.Field(&tg.ChannelUsername, validation.When(tg.Enabled, validation.Match(telegramUsername))),
	)
	return errs.Filter()
}
