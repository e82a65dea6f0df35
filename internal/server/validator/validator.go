package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/nulzo/model-registry/pkg/api"
)

// trans is a private global translator
var (
	trans ut.Translator
	once  sync.Once
)

// InitValidator configures the validator engine. It is safe to call more than once.
func InitValidator() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		en := en.New()
		uni := ut.New(en, en)
		trans, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		v.RegisterStructValidation(createModelRules, api.CreateModelRequest{})
		registerTranslation(v, "required_for_provider", "{0} is required for the selected provider")
		registerTranslation(v, "custom_only", "{0} is only accepted for the custom provider")
		registerTranslation(v, "excluded_for_custom", "{0} must be empty for the custom provider")
	})
}

// createModelRules enforces the provider/field pairing: custom registrations carry an
// endpoint and no model, every other provider carries a model and no endpoint.
func createModelRules(sl validator.StructLevel) {
	req := sl.Current().Interface().(api.CreateModelRequest)
	if req.Provider == "" {
		return
	}

	model, endpoint := req.Model(), req.Endpoint()
	if req.Provider == "custom" {
		if endpoint == "" {
			sl.ReportError(req.APIURL, "apiUrl", "APIURL", "required_for_provider", "")
		}
		if model != "" {
			sl.ReportError(req.ModelIdentifier, "modelIdentifier", "ModelIdentifier", "excluded_for_custom", "")
		}
		return
	}

	if model == "" {
		sl.ReportError(req.ModelIdentifier, "modelIdentifier", "ModelIdentifier", "required_for_provider", "")
	}
	if endpoint != "" {
		sl.ReportError(req.APIURL, "apiUrl", "APIURL", "custom_only", "")
	}
}

func registerTranslation(v *validator.Validate, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return t
		},
	)
}

// ParseValidationError converts raw technical errors into a clean map.
// When defined, nested errors can be resolved into their heirarchical naming.
func ParseValidationError(err error) map[string]string {
	errMap := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			ns := e.Namespace()

			if i := strings.Index(ns, "."); i != -1 {
				ns = ns[i+1:]
			}

			msg := e.Translate(trans)

			if e.Tag() == "oneof" {
				msg = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(e.Param(), " ", ", "))
			}

			errMap[ns] = msg
		}
		return errMap
	}

	errMap["body"] = "Invalid request body format. Please fix your payload."
	return errMap
}
