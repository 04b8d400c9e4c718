package workflow

import "fmt"

// Level grades a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// MarshalText lets notices serialise their level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Notice is a transient, user-facing status message.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func info(format string, args ...any) Notice {
	return Notice{Level: LevelInfo, Message: fmt.Sprintf(format, args...)}
}

func success(format string, args ...any) Notice {
	return Notice{Level: LevelSuccess, Message: fmt.Sprintf(format, args...)}
}

func warning(format string, args ...any) Notice {
	return Notice{Level: LevelWarning, Message: fmt.Sprintf(format, args...)}
}

// ErrorNotice turns err into a Notice. Validation problems are warnings.
func ErrorNotice(err error) Notice {
	if err == nil {
		return Notice{}
	}
	if IsValidation(err) {
		return Notice{Level: LevelWarning, Message: err.Error()}
	}
	return Notice{Level: LevelError, Message: err.Error()}
}
