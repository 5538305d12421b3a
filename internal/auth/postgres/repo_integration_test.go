// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/auth/postgres"
)

var _ = Describe("PrincipalRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.PrincipalRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewPrincipalRepository(testPool)
		DeferCleanup(func() {
			_, _ = testPool.Exec(ctx, `DELETE FROM users`)
			_, _ = testPool.Exec(ctx, `DELETE FROM admins`)
		})
	})

	newPrincipal := func(kind auth.Kind, email string) *auth.Principal {
		p, err := auth.NewPrincipal(kind, email, "$2a$10$hash", auth.Profile{FirstName: "Ada", LastName: "Lovelace"})
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	It("round-trips a user", func() {
		p := newPrincipal(auth.KindUser, "a@x.com")
		Expect(repo.Create(ctx, p)).To(Succeed())

		got, err := repo.GetByEmail(ctx, auth.KindUser, "a@x.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(p.ID))
		Expect(got.FirstName).To(Equal("Ada"))

		byID, err := repo.GetByID(ctx, auth.KindUser, p.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Email).To(Equal("a@x.com"))
	})

	It("rejects a duplicate email within a kind", func() {
		Expect(repo.Create(ctx, newPrincipal(auth.KindUser, "a@x.com"))).To(Succeed())
		err := repo.Create(ctx, newPrincipal(auth.KindUser, "a@x.com"))
		Expect(err).To(MatchError(auth.ErrAlreadyExists))
	})

	It("keeps users and admins apart", func() {
		Expect(repo.Create(ctx, newPrincipal(auth.KindUser, "a@x.com"))).To(Succeed())
		Expect(repo.Create(ctx, newPrincipal(auth.KindAdmin, "a@x.com"))).To(Succeed())

		Expect(repo.UpdatePassword(ctx, auth.KindAdmin, "a@x.com", "$2a$10$admin")).To(Succeed())

		user, err := repo.GetByEmail(ctx, auth.KindUser, "a@x.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(user.PasswordHash).To(Equal("$2a$10$hash"))
	})

	It("reports unknown principals", func() {
		_, err := repo.GetByEmail(ctx, auth.KindUser, "ghost@x.com")
		Expect(err).To(MatchError(auth.ErrNotFound))
		Expect(repo.UpdatePassword(ctx, auth.KindUser, "ghost@x.com", "h")).To(MatchError(auth.ErrNotFound))
	})
})

var _ = Describe("ResetStore", func() {
	var (
		ctx   context.Context
		store *postgres.ResetStore
		key   auth.ResetKey
		now   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = postgres.NewResetStore(testPool)
		key = auth.ResetKey{Kind: auth.KindUser, Email: "a@x.com", Purpose: auth.PurposeCode}
		now = time.Now().UTC().Truncate(time.Microsecond)
		DeferCleanup(func() { _, _ = testPool.Exec(ctx, `DELETE FROM password_resets`) })
	})

	save := func(code string, expires time.Time) {
		Expect(store.Save(ctx, &auth.PendingReset{
			Key: key, SecretHash: auth.HashSecret(key, code), ExpiresAt: expires, CreatedAt: now,
		})).To(Succeed())
	}

	It("consumes a matching code once", func() {
		save("111111", now.Add(time.Minute))
		Expect(store.Consume(ctx, key, auth.HashSecret(key, "111111"), now, 5)).To(Succeed())
		Expect(store.Consume(ctx, key, auth.HashSecret(key, "111111"), now, 5)).To(MatchError(auth.ErrNotFound))
	})

	It("overwrites on save and resets attempts", func() {
		save("111111", now.Add(time.Minute))
		Expect(store.Consume(ctx, key, auth.HashSecret(key, "000000"), now, 2)).To(MatchError(auth.ErrSecretMismatch))
		save("222222", now.Add(time.Minute))

		Expect(store.Consume(ctx, key, auth.HashSecret(key, "111111"), now, 2)).To(MatchError(auth.ErrSecretMismatch))
		Expect(store.Consume(ctx, key, auth.HashSecret(key, "222222"), now, 2)).To(Succeed())
	})

	It("discards an entry after too many misses", func() {
		save("111111", now.Add(time.Minute))
		for range 3 {
			Expect(store.Consume(ctx, key, auth.HashSecret(key, "000000"), now, 3)).To(MatchError(auth.ErrSecretMismatch))
		}
		Expect(store.Consume(ctx, key, auth.HashSecret(key, "111111"), now, 3)).To(MatchError(auth.ErrNotFound))
	})

	It("treats expired entries as absent and sweeps them", func() {
		save("111111", now.Add(-time.Second))
		Expect(store.Consume(ctx, key, auth.HashSecret(key, "111111"), now, 5)).To(MatchError(auth.ErrNotFound))

		removed, err := store.DeleteExpired(ctx, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal(int64(1)))
	})

	It("lets exactly one concurrent consumer win", func() {
		save("111111", now.Add(time.Minute))

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				if store.Consume(ctx, key, auth.HashSecret(key, "111111"), now, 5) == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		Expect(wins.Load()).To(Equal(int32(1)))
	})
})
