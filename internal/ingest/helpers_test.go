package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const pressureCSV = `measured_at,p_tube,p_line
2025-01-01 00:00:00,10,4
2025-01-01 00:01:00,10.1,4
2025-01-01 00:02:00,10.2,4
2025-01-02 00:00:00,9.8,4
2025-01-03 00:00:00,9.7,4
`

const markersCSV = `event_time,purge_phase,p_tube
2025-01-01 00:01:00,start,10
2025-01-02 00:00:00,stop,
`
