package apperr

import "fmt"

const (
	MsgSomethingWentWrong    = "Something went wrong. Please try again."
	MsgNoDatabaseConnection  = "Failed to connect to the database"
	MsgNoCacheConnection     = "Failed to connect to the cache"
	MsgNoCacheUser           = "Did not find a user with that id in the cache"
	MsgDifferentValues       = "Please make sure the the values you enter are different"
	MsgDuplicateDeviceName   = "You already have a device with the same name"
	MsgEmailAlreadyExists    = "This email is already linked to an account"
	MsgInvalidCredentials    = "You have entered an invalid email or password"
	MsgInvalidAccessKey      = "An invalid access key was provided"
	MsgMissingAccessKey      = "No access key was provided"
	MsgInvalidToken          = "An invalid token was provided"
	MsgAccountNotActivated   = "This account is not activated yet"
	MsgAccountDeactivated    = "This account has been deactivated"
	MsgNotLoggedIn           = "You are not logged in"
	MsgAlreadyLoggedIn       = "You are already logged in"
	MsgNoPermissionToUser    = "You don't have access to this user"
	MsgNoPermissionToDevice  = "You don't have access to this device"
	MsgNoLocationFound       = "No location with valid coordinates was found"
	MsgInvalidJSON           = "The request body is not valid JSON"
	MsgWeakPassword          = "Password must contain one uppercase letter, one lowercase letter, one number and one special character"
	MsgInvalidEmail          = "Please make sure the email you provide is valid"
	MsgMinimumOptionRequired = "Atleast 1 option(s) is required"
)

func MsgInvalidType(key, expected string) string {
	return fmt.Sprintf("%s must be a %q", key, expected)
}

func MsgInvalidFixedLength(key string, expected int) string {
	return fmt.Sprintf("%s must have a length of %d", key, expected)
}

func MsgInvalidMinLength(key string, expected int) string {
	return fmt.Sprintf("%s must be longer then %d", key, expected-1)
}

func MsgInvalidMaxLength(key string, expected int) string {
	return fmt.Sprintf("%s must be shorter then %d", key, expected+1)
}

func MsgIsRequired(key string) string {
	return fmt.Sprintf("%s is required", key)
}

func MsgOutOfRange(key string, min, max float64) string {
	return fmt.Sprintf("%s must be between %g and %g", key, min, max)
}

func MsgTokenExpired(method string) string {
	return fmt.Sprintf("The session has expired. Please %s again", method)
}

func MsgUserNotFound(userID string) string {
	return fmt.Sprintf("The user (%s) was not found", userID)
}

func MsgUserEmailNotFound(email string) string {
	return fmt.Sprintf("The user (%s) was not found", email)
}

func MsgDeviceNotFound(deviceID string) string {
	return fmt.Sprintf("The device (%s) was not found", deviceID)
}
