package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/njprem/PixelMart_BackEnd/internal/domain"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
)

var walletAddressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// WalletAvailability is the answer to "can this address be linked?".
// ConflictingUser holds only the owner's display handle.
type WalletAvailability struct {
	Available       bool   `json:"available"`
	ConflictingUser string `json:"conflictingUser,omitempty"`
}

type WalletService struct {
	store ports.Store
	log   logrus.FieldLogger
}

func NewWalletService(store ports.Store, log logrus.FieldLogger) *WalletService {
	return &WalletService{store: store, log: log.WithField("component", "wallet")}
}

// NormalizeAddress trims and lowercases an address. It is idempotent.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidateAddress returns the normalized address or ErrInvalidAddress.
func ValidateAddress(address string) (string, error) {
	normalized := NormalizeAddress(address)
	if !walletAddressPattern.MatchString(normalized) {
		return "", ErrInvalidAddress
	}
	return normalized, nil
}

// CheckAvailability reports whether address is free for requesterID. An address
// already connected to the requester counts as available; zero means anonymous.
func (s *WalletService) CheckAvailability(ctx context.Context, address string, requesterID int64) (*WalletAvailability, error) {
	normalized, err := ValidateAddress(address)
	if err != nil {
		return nil, err
	}
	link, err := s.store.WalletLinks().FindConnectedByAddress(ctx, normalized)
	if err != nil {
		if isNotFound(err) {
			return &WalletAvailability{Available: true}, nil
		}
		return nil, fmt.Errorf("lookup wallet: %w", err)
	}
	if requesterID != 0 && link.UserID == requesterID {
		return &WalletAvailability{Available: true}, nil
	}
	return &WalletAvailability{Available: false, ConflictingUser: domain.DisplayHandle(link.OwnerUsername)}, nil
}

func (s *WalletService) Link(ctx context.Context, userID int64, address string) (*domain.WalletLink, error) {
	normalized, err := ValidateAddress(address)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	var link *domain.WalletLink
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		link, err = repos.WalletLinks().Link(ctx, userID, normalized)
		return err
	})
	if err != nil {
		if errors.Is(err, ports.ErrAddressLinked) {
			return nil, ErrWalletAlreadyLinked
		}
		if errors.Is(err, ports.ErrConcurrentLink) {
			return nil, ErrWalletLinkConflict
		}
		return nil, fmt.Errorf("link wallet: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "address": normalized}).Info("wallet linked")
	return link, nil
}

func (s *WalletService) Unlink(ctx context.Context, userID int64) error {
	if err := s.store.WalletLinks().Disconnect(ctx, userID); err != nil {
		return fmt.Errorf("unlink wallet: %w", err)
	}
	s.log.WithField("user_id", userID).Info("wallet unlinked")
	return nil
}

// ConnectedWallet returns nil without error when the user has no connected wallet.
func (s *WalletService) ConnectedWallet(ctx context.Context, userID int64) (*domain.WalletLink, error) {
	link, err := s.store.WalletLinks().FindConnectedByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup connected wallet: %w", err)
	}
	return link, nil
}
