package main

import (
	"crypto/x509"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophLibrary/internal/certgen"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-out", "x", "-hosts", " lib.local, ,10.0.0.2", "-valid-for", "48h"})
	require.NoError(t, err)
	assert.Equal(t, "x", o.dir)
	assert.Equal(t, []string{"lib.local", "10.0.0.2"}, o.hosts)
	assert.Equal(t, 48*time.Hour, o.validFor)

	_, err = parseFlags([]string{"-hosts", ","})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(options{dir: dir, hosts: []string{"localhost"}, validFor: time.Hour}))

	ca, err := certgen.LoadPair(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
	require.NoError(t, err)
	server, err := certgen.LoadPair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
	require.NoError(t, err)

	roots := x509.NewCertPool()
	roots.AddCert(ca.Cert)
	_, err = server.Cert.Verify(x509.VerifyOptions{DNSName: "localhost", Roots: roots})
	assert.NoError(t, err)
}
