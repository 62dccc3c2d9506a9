package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gocloud.dev/secrets"
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"

	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
)

// KMSSchemes lists the key URI schemes with a registered keeper driver.
var KMSSchemes = []string{"awskms", "azurekeyvault", "base64key", "gcpkms", "hashivault"}

// KMSService opens keepers that seal the secure store.
type KMSService interface {
	// OpenKeeper opens a keeper for keyURI. The scheme must be one of KMSSchemes.
	OpenKeeper(ctx context.Context, keyURI string) (Keeper, error)
}

type kmsService struct{}

// NewKMSService creates a KMSService backed by gocloud.dev/secrets.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens the keeper for keyURI. Errors name the scheme only; base64key
// URIs carry key material and are never echoed.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (Keeper, error) {
	scheme, err := KMSScheme(keyURI)
	if err != nil {
		return nil, err
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s keeper", scheme)
	}
	return keeper, nil
}

// KMSScheme returns the scheme of keyURI, or ErrUnsupportedKMSScheme.
func KMSScheme(keyURI string) (string, error) {
	scheme, _, ok := strings.Cut(keyURI, "://")
	if !ok || !slices.Contains(KMSSchemes, scheme) {
		return "", cryptoDomain.ErrUnsupportedKMSScheme
	}
	return scheme, nil
}
