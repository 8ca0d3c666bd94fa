package a2a

// TaskSendParams represents the parameters for sending a task message
type TaskSendParams struct {
	// ID is the unique identifier for the task being initiated or continued
	ID string `json:"id"`
	// SessionID is an optional identifier for the session this task belongs to
	SessionID string `json:"sessionId,omitempty"`
	// Message is the message content to send to the agent for processing
	Message Message `json:"message"`
	// PushNotification is optional push notification information for receiving notifications
	PushNotification *PushNotificationConfig `json:"pushNotification,omitempty"`
	// HistoryLength is an optional parameter to specify how much message history to include
	HistoryLength *int `json:"historyLength,omitempty"`
	// Metadata is optional metadata associated with sending this message
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TaskIDParams represents the base parameters for task ID-based operations
type TaskIDParams struct {
	// ID is the unique identifier of the task
	ID string `json:"id"`
	// Metadata is optional metadata to include with the operation
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TaskQueryParams represents the parameters for querying task information
type TaskQueryParams struct {
	TaskIDParams
	// HistoryLength is an optional parameter to specify how much history to retrieve
	HistoryLength *int `json:"historyLength,omitempty"`
}

// PushNotificationConfig represents the configuration for push notifications
type PushNotificationConfig struct {
	// URL is the endpoint where the agent should send notifications
	URL string `json:"url"`
	// Token is a token to be included in push notification requests for verification
	Token *string `json:"token,omitempty"`
	// Authentication is optional authentication details needed by the agent
	Authentication *AgentAuthentication `json:"authentication,omitempty"`
}

func (config *PushNotificationConfig) Clone() *PushNotificationConfig {
	if config == nil {
		return nil
	}

	out := *config

	if config.Token != nil {
		token := *config.Token
		out.Token = &token
	}

	if config.Authentication != nil {
		auth := *config.Authentication
		auth.Schemes = append([]string(nil), config.Authentication.Schemes...)

		if config.Authentication.Credentials != nil {
			credentials := *config.Authentication.Credentials
			auth.Credentials = &credentials
		}

		out.Authentication = &auth
	}

	return &out
}

// TaskPushNotificationConfig represents the configuration for task-specific push notifications
type TaskPushNotificationConfig struct {
	// ID is the ID of the task the notification config is associated with
	ID string `json:"id"`
	// PushNotificationConfig is the push notification configuration details
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}
