package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	require.NotPanics(t, func() { NotNil(struct{}{}, "value") })
	require.PanicsWithValue(t, "assert: telemetry must not be nil", func() { NotNil(nil, "telemetry") })
}

func TestNotEmptyStr(t *testing.T) {
	require.NotPanics(t, func() { NotEmptyStr("portal_scraper", "namespace") })
	require.PanicsWithValue(t, "assert: namespace must not be empty", func() { NotEmptyStr("", "namespace") })
}
