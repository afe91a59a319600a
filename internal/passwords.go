package internal

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// LoadPasswordsFromFile loads passwords from a file, one password per line
func LoadPasswordsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var passwords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			passwords = append(passwords, pwd)
		}
	}
	return passwords, scanner.Err()
}

// TrustStorePassword picks the export truststore password: the first
// password in passwordFile when one is given, else password, else the
// conventional default.
func TrustStorePassword(password, passwordFile string) (string, error) {
	if passwordFile != "" {
		passwords, err := LoadPasswordsFromFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("loading password from file: %w", err)
		}
		if len(passwords) == 0 {
			return "", errors.New("password file contains no password")
		}
		return passwords[0], nil
	}
	if password != "" {
		return password, nil
	}
	return certstore.DefaultTrustStorePassword, nil
}
