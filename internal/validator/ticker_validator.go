package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// maxTickerLength bounds symbols such as "BRK-B", "PETR4.SA" or "^BVSP"
const maxTickerLength = 15

var tickerPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=]*$`)

// ValidateTicker checks that a symbol can be sent to the quote API as is
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return errors.New("ticker cannot be empty")
	}
	if len(ticker) > maxTickerLength {
		return fmt.Errorf("ticker %q is longer than %d characters", ticker, maxTickerLength)
	}
	if !tickerPattern.MatchString(strings.ToUpper(ticker)) {
		return fmt.Errorf("invalid ticker: %s", ticker)
	}
	return nil
}

// RegisterBindings adds the "ticker" tag to gin's binding validator
func RegisterBindings() error {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return engine.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return ValidateTicker(fl.Field().String()) == nil
	})
}
