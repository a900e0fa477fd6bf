package quiethours

import (
	"testing"
	"time"

	"github.com/jurzon/backy/adapter/cli/clitest"
	"github.com/jurzon/backy/internal/reminders/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuietHoursCommands(t *testing.T) {
	clitest.Setup(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	out, err := clitest.Run(t, showCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "Quiet hours: 22:00-07:00 UTC (default)\n", out)

	out, err = clitest.Run(t, setCmd, map[string]string{"start": "23", "end": "6", "tz": "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "Quiet hours set: 23:00-06:00 UTC\n", out)

	out, err = clitest.Run(t, showCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "Quiet hours: 23:00-06:00 UTC\n", out)

	_, err = clitest.Run(t, setCmd, map[string]string{"start": "24"})
	assert.ErrorIs(t, err, domain.ErrInvalidQuietHour)

	out, err = clitest.Run(t, clearCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Quiet hours cleared")

	out, err = clitest.Run(t, showCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "(default)")
}

func TestFormatWindow(t *testing.T) {
	assert.Equal(t, "off", formatWindow(5, 5, "UTC"))
	assert.Equal(t, "09:00-17:00 Europe/Zurich", formatWindow(9, 17, "Europe/Zurich"))
}
