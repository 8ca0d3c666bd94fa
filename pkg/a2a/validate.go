package a2a

import (
	"fmt"
	"net/url"

	v "github.com/cohesivestack/valgo"
	"github.com/theapemachine/a2a-server/pkg/errors"
)

var messageRoles = []string{RoleUser, RoleAgent, "assistant"}

func (params *TaskIDParams) Validate() *errors.RpcError {
	return result(v.Is(v.String(params.ID, "id").Not().Blank()))
}

func (params *TaskQueryParams) Validate() *errors.RpcError {
	val := v.Is(v.String(params.ID, "id").Not().Blank())

	if params.HistoryLength != nil {
		val.Is(v.Number(*params.HistoryLength, "historyLength").GreaterOrEqualTo(0))
	}

	return result(val)
}

func (params *TaskSendParams) Validate() *errors.RpcError {
	val := v.Is(v.String(params.ID, "id").Not().Blank())

	if params.HistoryLength != nil {
		val.Is(v.Number(*params.HistoryLength, "historyLength").GreaterOrEqualTo(0))
	}

	validateMessage(val, "message", params.Message)

	if params.PushNotification != nil {
		validatePushConfig(val, "pushNotification", params.PushNotification)
	}

	return result(val)
}

func (params *TaskPushNotificationConfig) Validate() *errors.RpcError {
	val := v.Is(v.String(params.ID, "id").Not().Blank())
	validatePushConfig(val, "pushNotificationConfig", &params.PushNotificationConfig)

	return result(val)
}

func validateMessage(val *v.Validation, name string, message Message) {
	val.Is(
		v.String(message.Role, name+".role").InSlice(messageRoles),
		v.Number(len(message.Parts), name+".parts").GreaterThan(0),
	)

	for i, part := range message.Parts {
		val.Is(v.String(string(part.Type), fmt.Sprintf("%s.parts[%d].type", name, i)).Passing(
			func(string) bool { return part.wellFormed() },
			"{{title}} does not match the populated part fields",
		))
	}
}

func validatePushConfig(val *v.Validation, name string, config *PushNotificationConfig) {
	val.Is(v.String(config.URL, name+".url").Passing(
		func(raw string) bool {
			target, err := url.Parse(raw)
			return err == nil && target.Host != "" && (target.Scheme == "http" || target.Scheme == "https")
		},
		"{{title}} must be an absolute http(s) URL",
	))
}

// wellFormed reports whether exactly the field named by Type is populated.
func (part Part) wellFormed() bool {
	switch part.Type {
	case PartTypeText:
		return part.File == nil && part.Data == nil
	case PartTypeFile:
		if part.File == nil || part.Text != "" || part.Data != nil {
			return false
		}
		return (part.File.Data == "") != (part.File.URI == "")
	case PartTypeData:
		return part.Data != nil && part.Text == "" && part.File == nil
	}

	return false
}

func result(val *v.Validation) *errors.RpcError {
	if val.Valid() {
		return nil
	}

	return errors.ErrInvalidRequest.WithMessagef("invalid params").WithData(val.Error())
}
