package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"torn-bazaar-api/internal/model"
	"torn-bazaar-api/internal/repository"
)

// ErrScanInProgress is returned by RunNow when a full scan is already running.
var ErrScanInProgress = errors.New("scan already in progress")

// BazaarFetcher fetches one seller's current bazaar.
type BazaarFetcher interface {
	FetchBazaar(ctx context.Context, playerID int64) (*model.BazaarSnapshot, error)
}

// ScannerConfig holds configuration for the background scanner.
type ScannerConfig struct {
	// Interval is how often a full scan starts. Default: 15 minutes.
	Interval time.Duration

	// BatchSize controls how many sellers are scanned between progress log
	// lines. It does not parallelize anything: scanning stays strictly
	// sequential behind the shared rate limiter.
	BatchSize int
}

// Scanner walks the entire active seller registry on a fixed interval,
// replacing each seller's persisted listings with freshly fetched ones and
// recording a scan_history audit row per attempt. At most one scan runs at
// a time; a trigger that lands mid-scan is skipped, never queued.
type Scanner struct {
	repo    repository.MarketRepository
	fetcher BazaarFetcher
	config  ScannerConfig

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc

	mu         sync.Mutex
	started    bool
	isScanning bool
}

// NewScanner creates a background scanner.
func NewScanner(repo repository.MarketRepository, fetcher BazaarFetcher, config ScannerConfig) *Scanner {
	if config.Interval == 0 {
		config.Interval = 15 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}

	return &Scanner{
		repo:    repo,
		fetcher: fetcher,
		config:  config,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the scan loop: an immediate scan, then one per interval.
func (s *Scanner) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ticker = time.NewTicker(s.config.Interval)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	log.Printf("[Scanner] Started - interval: %v, batch size: %d", s.config.Interval, s.config.BatchSize)

	go s.performFullScan(ctx)
	go s.run(ctx)
}

// run is the main scan loop.
func (s *Scanner) run(ctx context.Context) {
	for {
		select {
		case <-s.ticker.C:
			s.performFullScan(ctx)
		case <-s.stopCh:
			log.Printf("[Scanner] Stopped")
			return
		}
	}
}

// IsScanning reports whether a full scan is currently running.
func (s *Scanner) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isScanning
}

// IntervalMinutes returns the scan interval in whole minutes.
func (s *Scanner) IntervalMinutes() int {
	return int(s.config.Interval / time.Minute)
}

// RunNow triggers an immediate scan in the background. Returns
// ErrScanInProgress when one is already running.
func (s *Scanner) RunNow() error {
	s.mu.Lock()
	if s.isScanning {
		s.mu.Unlock()
		return ErrScanInProgress
	}
	s.mu.Unlock()

	go s.performFullScan(context.Background())
	return nil
}

// performFullScan scans every active seller sequentially. Individual seller
// failures are recorded and skipped; only a failure to list sellers aborts.
func (s *Scanner) performFullScan(ctx context.Context) {
	s.mu.Lock()
	if s.isScanning {
		s.mu.Unlock()
		log.Printf("[Scanner] Scan already in progress, skipping")
		return
	}
	s.isScanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isScanning = false
		s.mu.Unlock()
	}()

	sellers, err := s.repo.ActiveSellers(ctx)
	if err != nil {
		log.Printf("[Scanner] Error loading active sellers: %v", err)
		return
	}

	log.Printf("[Scanner] Starting full scan of %d active sellers", len(sellers))

	scanned := 0
	totalItems := 0
	for _, seller := range sellers {
		if ctx.Err() != nil {
			log.Printf("[Scanner] Scan cancelled after %d/%d sellers", scanned, len(sellers))
			return
		}

		itemsFound, err := s.scanSeller(ctx, seller)
		if err != nil {
			log.Printf("[Scanner] Error scanning seller %d: %v", seller.PlayerID, err)
			s.recordAttempt(ctx, model.ScanAttempt{
				PlayerID:     seller.PlayerID,
				ScanTime:     time.Now().UTC(),
				ItemsFound:   0,
				Success:      false,
				ErrorMessage: err.Error(),
			})
			continue
		}

		scanned++
		totalItems += itemsFound
		s.recordAttempt(ctx, model.ScanAttempt{
			PlayerID:   seller.PlayerID,
			ScanTime:   time.Now().UTC(),
			ItemsFound: itemsFound,
			Success:    true,
		})

		if scanned%s.config.BatchSize == 0 {
			log.Printf("[Scanner] Scanned %d/%d sellers, found %d total items", scanned, len(sellers), totalItems)
		}
	}

	log.Printf("[Scanner] Full scan complete: %d sellers scanned, %d items indexed", scanned, totalItems)
}

// scanSeller fetches one seller's bazaar and replaces their persisted
// listings. A fetch or persistence failure leaves the previous listings
// untouched.
func (s *Scanner) scanSeller(ctx context.Context, seller model.Seller) (int, error) {
	snapshot, err := s.fetcher.FetchBazaar(ctx, seller.PlayerID)
	if err != nil {
		return 0, err
	}

	if snapshot.PlayerName == "" {
		snapshot.PlayerName = seller.PlayerName
	}

	listings := snapshot.Listings()
	if err := s.repo.ReplaceListings(ctx, seller.PlayerID, listings); err != nil {
		return 0, err
	}
	return len(listings), nil
}

func (s *Scanner) recordAttempt(ctx context.Context, attempt model.ScanAttempt) {
	if err := s.repo.RecordScanAttempt(ctx, attempt); err != nil {
		log.Printf("[Scanner] Error recording scan attempt for seller %d: %v", attempt.PlayerID, err)
	}
}

// Stop stops the scan loop and cancels any in-flight scan.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		if s.cancel != nil {
			s.cancel()
		}
		close(s.stopCh)
		s.started = false
	})
}
