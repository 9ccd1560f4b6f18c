package config

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	errNoKeyPair     = errors.New("saml key pair not configured")
	errNotRSAKey     = errors.New("saml key is not an rsa private key")
	errConfigIsDir   = errors.New("config file is dir")
	errSAMLNoIDPMeta = errors.New("saml requires idp_metadata_url or idp_metadata_file")
)

// SAML configures the optional SAML sign-in. Key material is PEM text kept in
// the config file.
type SAML struct {
	EntityID        string `yaml:"entity_id"`
	IDPMetadataURL  string `yaml:"idp_metadata_url"`
	IDPMetadataFile string `yaml:"idp_metadata_file"`
	Key             string `yaml:"key"`
	Cert            string `yaml:"cert"`
}

func (s SAML) Enabled() bool {
	return s.IDPMetadataURL != "" || s.IDPMetadataFile != ""
}

func (s SAML) KeyPair() (*rsa.PrivateKey, *x509.Certificate, error) {
	if !s.Enabled() {
		return nil, nil, errSAMLNoIDPMeta
	}
	if s.Key == "" || s.Cert == "" {
		return nil, nil, errNoKeyPair
	}

	keyPair, err := tls.X509KeyPair([]byte(s.Cert), []byte(s.Key))
	if err != nil {
		return nil, nil, err
	}
	keyPair.Leaf, err = x509.ParseCertificate(keyPair.Certificate[0])
	if err != nil {
		return nil, nil, err
	}

	key, ok := keyPair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, errNotRSAKey
	}

	return key, keyPair.Leaf, nil
}

func readYAML(path string, cfg *Config) error {
	filename, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	finfo, err := os.Stat(filename)
	if err != nil {
		return err
	}
	if finfo.IsDir() {
		return errConfigIsDir
	}

	yamlFile, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
