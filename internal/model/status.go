package model

import "fmt"

// Status は作品の連載状態を表すenumです。ゼロ値は StatusUnknown です。
type Status int

const (
	StatusUnknown Status = iota
	StatusOngoing
	StatusCompleted
	StatusLicensed
	StatusPublishingFinished
	StatusCancelled
	StatusOnHiatus
)

var statusNames = map[Status]string{
	StatusUnknown:            "UNKNOWN",
	StatusOngoing:            "ONGOING",
	StatusCompleted:          "COMPLETED",
	StatusLicensed:           "LICENSED",
	StatusPublishingFinished: "PUBLISHING_FINISHED",
	StatusCancelled:          "CANCELLED",
	StatusOnHiatus:           "ON_HIATUS",
}

// String は Status を表示用の文字列に変換します。
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusUnknown]
}

// MarshalText は Status を文字列としてエンコードします。
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText は文字列から Status を復元します。
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("不明なステータスです: %q", string(text))
}
