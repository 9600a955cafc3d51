package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBlobFetcher reads azblob://container/blob references
type AzureBlobFetcher struct {
	client *azblob.Client
}

// NewAzureBlobFetcher authenticates with a shared key. An empty serviceURL
// selects the account's public endpoint.
func NewAzureBlobFetcher(accountName, accountKey, serviceURL string) (*AzureBlobFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure storage credentials: %w", err)
	}

	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	return &AzureBlobFetcher{client: client}, nil
}

// Fetch downloads the referenced blob
func (s *AzureBlobFetcher) Fetch(ctx context.Context, ref string) (*Blob, error) {
	containerName, blobName, err := parseBlobRef(ref, SchemeAzureBlob)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	blob := &Blob{Data: data}
	if resp.ContentType != nil {
		blob.ContentType = *resp.ContentType
	}
	return blob, nil
}

// parseBlobRef splits scheme://container/name into its parts
func parseBlobRef(ref, scheme string) (string, string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob reference: %w", err)
	}
	if !strings.EqualFold(u.Scheme, scheme) {
		return "", "", fmt.Errorf("expected %s:// reference, got %q", scheme, ref)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || name == "" {
		return "", "", fmt.Errorf("blob reference %q must be %s://container/name", ref, scheme)
	}
	return u.Host, name, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBlobSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if len(data) > maxBlobSize {
		return nil, fmt.Errorf("blob exceeds %d bytes", maxBlobSize)
	}
	return data, nil
}
