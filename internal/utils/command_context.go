package utils

import "context"

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	invocationIdentifierContextKeyConstant  = commandContextKey("invocationIdentifier")
)

type commandContextKey string

// CommandContextAccessor stores invocation metadata in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path used by the invocation.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return accessor.withValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return accessor.stringValue(executionContext, configurationFilePathContextKeyConstant)
}

// WithInvocationIdentifier attaches the identifier correlating every log line of one invocation.
func (accessor CommandContextAccessor) WithInvocationIdentifier(parentContext context.Context, invocationIdentifier string) context.Context {
	return accessor.withValue(parentContext, invocationIdentifierContextKeyConstant, invocationIdentifier)
}

// InvocationIdentifier extracts the invocation identifier. Blank identifiers are reported as absent.
func (accessor CommandContextAccessor) InvocationIdentifier(executionContext context.Context) (string, bool) {
	invocationIdentifier, available := accessor.stringValue(executionContext, invocationIdentifierContextKeyConstant)
	if !available || len(invocationIdentifier) == 0 {
		return "", false
	}
	return invocationIdentifier, true
}

func (accessor CommandContextAccessor) withValue(parentContext context.Context, key commandContextKey, value string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, key, value)
}

func (accessor CommandContextAccessor) stringValue(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, available := executionContext.Value(key).(string)
	return value, available
}
