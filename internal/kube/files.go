/*
Copyright 2025 The Cozystack Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package kube

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// NamespaceFile is where the service account token mount exposes the
// namespace of the pod.
const NamespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

// ReadNamespace reads the current namespace from path, or from
// NamespaceFile when path is empty.
func ReadNamespace(path string) (string, error) {
	if path == "" {
		path = NamespaceFile
	}
	line, err := firstLine(path)
	if err != nil {
		return "", fmt.Errorf("failed to read namespace from %s: %w", path, err)
	}
	if line == "" {
		return "", fmt.Errorf("namespace file %s is empty", path)
	}
	return line, nil
}

// ReadSecretFile returns the first line of a mounted secret file, or an
// empty string when the file does not exist.
func ReadSecretFile(path string) (string, error) {
	line, err := firstLine(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return line, err
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", scanner.Err()
}
