package apihelpers

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
)

type CertificatePaths struct {
	ServerCertPath string `yaml:"cert"`
	ServerKeyPath  string `yaml:"key"`
	CACertPath     string `yaml:"ca_cert"`
}

func loadPair(paths CertificatePaths) (tls.Certificate, *x509.CertPool, error) {
	cert, err := tls.LoadX509KeyPair(paths.ServerCertPath, paths.ServerKeyPath)
	if err != nil {
		return tls.Certificate{}, nil, err
	}

	caCert, err := os.ReadFile(paths.CACertPath)
	if err != nil {
		return tls.Certificate{}, nil, err
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return tls.Certificate{}, nil, errors.New("no certificates found in CA file")
	}
	return cert, caCertPool, nil
}

// LoadTLSConfig is the server side: client certificates are required.
func LoadTLSConfig(paths CertificatePaths) (*tls.Config, error) {
	cert, pool, err := loadPair(paths)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
	}, nil
}

// LoadClientTLSConfig presents the certificate and trusts the given CA for the remote server.
func LoadClientTLSConfig(paths CertificatePaths) (*tls.Config, error) {
	cert, pool, err := loadPair(paths)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
	}, nil
}
