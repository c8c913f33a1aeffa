package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultSSHPort = "22"

// SFTPConfig holds the connection settings of the remote drop area.
type SFTPConfig struct {
	Address               string // host or host:port
	User                  string
	KeyFile               string // private key for public key auth
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
	Timeout               time.Duration
}

// SFTP is a Transport over an SSH connection.
type SFTP struct {
	ssh    *ssh.Client
	client *sftp.Client
}

// Dial connects and authenticates to the SFTP server.
func Dial(ctx context.Context, cfg SFTPConfig) (*SFTP, error) {
	if cfg.Address == "" {
		return nil, errors.New("sftp: address is required")
	}
	addr := normalizeAddress(cfg.Address)

	signer, err := loadSigner(cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	hostKey, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	conf := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKey,
		Timeout:         cfg.Timeout,
	}

	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sftp: dialing %s: %w", addr, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, conf)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp: ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("sftp: starting subsystem: %w", err)
	}
	return &SFTP{ssh: sshClient, client: client}, nil
}

func normalizeAddress(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, defaultSSHPort)
}

func loadSigner(keyFile string) (ssh.Signer, error) {
	if keyFile == "" {
		return nil, errors.New("sftp: key file is required")
	}
	pem, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("sftp: reading key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("sftp: parsing key %s: %w", keyFile, err)
	}
	return signer, nil
}

func hostKeyCallback(cfg SFTPConfig) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if cfg.KnownHostsFile == "" {
		return nil, errors.New("sftp: known_hosts file is required unless host key checking is disabled")
	}
	cb, err := knownhosts.New(cfg.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("sftp: loading known hosts: %w", err)
	}
	return cb, nil
}

// List returns the names of regular files in dir.
func (s *SFTP) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("sftp: listing %s: %w", dir, err)
	}
	var names []string
	for _, fi := range infos {
		if fi.Mode().IsRegular() {
			names = append(names, fi.Name())
		}
	}
	return names, nil
}

// Download copies the remote file to localPath.
func (s *SFTP) Download(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("sftp: opening %s: %w", remotePath, err)
	}
	defer f.Close()

	return copyToFile(localPath, f)
}

// Remove deletes the remote file.
func (s *SFTP) Remove(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Remove(remotePath); err != nil {
		return fmt.Errorf("sftp: removing %s: %w", remotePath, err)
	}
	return nil
}

// Upload copies localPath to the remote file, replacing it.
func (s *SFTP) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := s.client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("sftp: creating %s: %w", remotePath, err)
	}
	if _, err := dst.ReadFrom(src); err != nil {
		dst.Close()
		return fmt.Errorf("sftp: uploading %s: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("sftp: closing %s: %w", remotePath, err)
	}
	return nil
}

// Close ends the SFTP session and the SSH connection.
func (s *SFTP) Close() error {
	return errors.Join(s.client.Close(), s.ssh.Close())
}
