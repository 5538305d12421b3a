// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/oklog/ulid/v2"

	"github.com/storefront/storefront/internal/auth"
)

var client = &http.Client{Timeout: 10 * time.Second}

// call sends a JSON request and decodes the JSON response into out when it
// is non-nil.
func call(method, path string, body any, token string, out any) int {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, env.baseURL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return send(req, out)
}

func send(req *http.Request, out any) int {
	resp, err := client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	if out != nil {
		Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
	}
	return resp.StatusCode
}

// uniqueEmail keeps specs independent inside the shared database.
func uniqueEmail(prefix string) string {
	return prefix + "-" + ulid.Make().String() + "@shop.test"
}

type messageBody struct {
	Message string `json:"message"`
}

type loginBody struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type verifyBody struct {
	Success    bool   `json:"success"`
	ResetToken string `json:"resetToken"`
}

var _ = Describe("Accounts", func() {
	It("registers, logs in and reads the profile", func() {
		email := uniqueEmail("ada")
		var msg messageBody
		Expect(call(http.MethodPost, "/register", map[string]string{
			"firstname": "Ada", "lastname": "Lovelace", "email": email, "password": "engine-1",
		}, "", &msg)).To(Equal(http.StatusCreated))
		Expect(msg.Message).To(Equal("User registered successfully"))

		Expect(call(http.MethodPost, "/register", map[string]string{
			"firstname": "Ada", "lastname": "Lovelace", "email": email, "password": "engine-1",
		}, "", &msg)).To(Equal(http.StatusConflict))

		var login loginBody
		Expect(call(http.MethodPost, "/login", map[string]string{"email": email, "password": "engine-1"}, "", &login)).
			To(Equal(http.StatusOK))
		Expect(login.Success).To(BeTrue())

		var profile struct {
			Email     string `json:"email"`
			FirstName string `json:"firstname"`
		}
		Expect(call(http.MethodGet, "/api/user", nil, login.Token, &profile)).To(Equal(http.StatusOK))
		Expect(profile.Email).To(Equal(email))
		Expect(profile.FirstName).To(Equal("Ada"))
	})

	It("rejects wrong passwords without revealing whether the email exists", func() {
		email := uniqueEmail("grace")
		Expect(call(http.MethodPost, "/register", map[string]string{
			"firstname": "Grace", "lastname": "Hopper", "email": email, "password": "cobol",
		}, "", nil)).To(Equal(http.StatusCreated))

		var wrong, unknown messageBody
		Expect(call(http.MethodPost, "/login", map[string]string{"email": email, "password": "fortran"}, "", &wrong)).
			To(Equal(http.StatusUnauthorized))
		Expect(call(http.MethodPost, "/login", map[string]string{"email": uniqueEmail("nobody"), "password": "x"}, "", &unknown)).
			To(Equal(http.StatusUnauthorized))
		Expect(wrong.Message).To(Equal(unknown.Message))
	})

	It("keeps addresses per user", func() {
		email := uniqueEmail("addr")
		Expect(env.authn.Register(context.Background(), auth.KindUser, email, "pw", auth.Profile{})).Error().NotTo(HaveOccurred())
		_, token, err := env.authn.Login(context.Background(), auth.KindUser, email, "pw")
		Expect(err).NotTo(HaveOccurred())

		Expect(call(http.MethodPost, "/api/addresses", map[string]string{"name": "Home", "details": "1 Loop Rd"}, token, nil)).
			To(Equal(http.StatusCreated))

		var list []struct {
			Name string `json:"name"`
		}
		Expect(call(http.MethodGet, "/api/addresses", nil, token, &list)).To(Equal(http.StatusOK))
		Expect(list).To(HaveLen(1))
		Expect(list[0].Name).To(Equal("Home"))
	})
})

var _ = Describe("Password reset", func() {
	It("resets a user password through code and ticket", func() {
		email := uniqueEmail("reset")
		Expect(env.authn.Register(context.Background(), auth.KindUser, email, "old-pass", auth.Profile{})).Error().NotTo(HaveOccurred())

		Expect(call(http.MethodPost, "/forgot-password", map[string]string{"email": email}, "", nil)).To(Equal(http.StatusOK))
		code := env.notifier.Code(email)
		Expect(code).To(HaveLen(6))

		var bad messageBody
		Expect(call(http.MethodPost, "/verify-otp", map[string]string{"email": email, "otp": "not-it"}, "", &bad)).
			To(Equal(http.StatusBadRequest))

		var verified verifyBody
		Expect(call(http.MethodPost, "/verify-otp", map[string]any{"email": email, "otp": code}, "", &verified)).
			To(Equal(http.StatusOK))
		Expect(verified.ResetToken).NotTo(BeEmpty())

		Expect(call(http.MethodPost, "/verify-otp", map[string]any{"email": email, "otp": code}, "", nil)).
			To(Equal(http.StatusBadRequest), "codes are single-use")

		Expect(call(http.MethodPost, "/reset-password", map[string]string{
			"email": email, "newPassword": "new-pass", "resetToken": verified.ResetToken,
		}, "", nil)).To(Equal(http.StatusOK))
		Expect(call(http.MethodPost, "/reset-password", map[string]string{
			"email": email, "newPassword": "again", "resetToken": verified.ResetToken,
		}, "", nil)).To(Equal(http.StatusBadRequest), "tickets are single-use")

		Expect(call(http.MethodPost, "/login", map[string]string{"email": email, "password": "old-pass"}, "", nil)).
			To(Equal(http.StatusUnauthorized))
		Expect(call(http.MethodPost, "/login", map[string]string{"email": email, "password": "new-pass"}, "", nil)).
			To(Equal(http.StatusOK))
	})

	It("keeps admin and user codes apart", func() {
		email := uniqueEmail("both")
		ctx := context.Background()
		Expect(env.authn.Register(ctx, auth.KindUser, email, "user-pw", auth.Profile{})).Error().NotTo(HaveOccurred())
		Expect(env.authn.Register(ctx, auth.KindAdmin, email, "admin-pw", auth.Profile{})).Error().NotTo(HaveOccurred())

		Expect(call(http.MethodPost, "/admin/forgot-password", map[string]string{"email": email}, "", nil)).To(Equal(http.StatusOK))
		adminCode := env.notifier.Code(email)

		Expect(call(http.MethodPost, "/verify-otp", map[string]string{"email": email, "otp": adminCode}, "", nil)).
			To(Equal(http.StatusBadRequest), "an admin code does not verify a user")
		Expect(call(http.MethodPost, "/admin/verify-otp", map[string]string{"email": email, "otp": adminCode}, "", nil)).
			To(Equal(http.StatusOK))
	})
})

var _ = Describe("Catalog", func() {
	var adminToken, userToken string

	BeforeEach(func() {
		ctx := context.Background()
		adminEmail, userEmail := uniqueEmail("admin"), uniqueEmail("shopper")
		Expect(env.authn.Register(ctx, auth.KindAdmin, adminEmail, "pw", auth.Profile{})).Error().NotTo(HaveOccurred())
		Expect(env.authn.Register(ctx, auth.KindUser, userEmail, "pw", auth.Profile{})).Error().NotTo(HaveOccurred())
		var err error
		_, adminToken, err = env.authn.Login(ctx, auth.KindAdmin, adminEmail, "pw")
		Expect(err).NotTo(HaveOccurred())
		_, userToken, err = env.authn.Login(ctx, auth.KindUser, userEmail, "pw")
		Expect(err).NotTo(HaveOccurred())
	})

	upload := func(method, path, token string, fields map[string]string, out any) int {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			Expect(mw.WriteField(k, v)).To(Succeed())
		}
		part, err := mw.CreateFormFile("image", "lamp.png")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\nlamp"))
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())

		req, err := http.NewRequest(method, env.baseURL+path, &buf)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		return send(req, out)
	}

	It("lets admins manage products and serves their images", func() {
		fields := map[string]string{"name": "Lamp", "type": "electronics", "category": "home", "price": "19.99", "stock": "4"}

		Expect(upload(http.MethodPost, "/add", userToken, fields, nil)).To(Equal(http.StatusForbidden))

		var created struct {
			ProductID string `json:"productId"`
			Product   struct {
				PriceCents int64  `json:"priceCents"`
				ImageURL   string `json:"imageUrl"`
			} `json:"product"`
		}
		Expect(upload(http.MethodPost, "/add", adminToken, fields, &created)).To(Equal(http.StatusCreated))
		Expect(created.Product.PriceCents).To(Equal(int64(1999)))
		Expect(created.Product.ImageURL).To(HavePrefix("/uploads/products/"))

		resp, err := client.Get(env.baseURL + created.Product.ImageURL)
		Expect(err).NotTo(HaveOccurred())
		image, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(image)).To(Equal("\x89PNG\r\n\x1a\nlamp"))

		var product struct {
			Name string `json:"name"`
		}
		Expect(call(http.MethodGet, "/product/"+created.ProductID, nil, "", &product)).To(Equal(http.StatusOK))
		Expect(product.Name).To(Equal("Lamp"))

		Expect(call(http.MethodDelete, "/delete/"+created.ProductID, nil, adminToken, nil)).To(Equal(http.StatusOK))
		Expect(call(http.MethodGet, "/product/"+created.ProductID, nil, "", nil)).To(Equal(http.StatusNotFound))
	})

	It("filters products in SQL and lists categories", func() {
		category := "cat-" + strings.ToLower(ulid.Make().String())
		for _, p := range []map[string]string{
			{"name": "Desk 50% Lamp", "category": category, "price": "25"},
			{"name": "Desk Fan", "category": category, "price": "40"},
		} {
			Expect(upload(http.MethodPost, "/add", adminToken, p, nil)).To(Equal(http.StatusCreated))
		}

		var products []struct {
			Name string `json:"name"`
		}
		Expect(call(http.MethodGet, "/products?category="+category+"&name=50%25", nil, "", &products)).To(Equal(http.StatusOK))
		Expect(products).To(HaveLen(1))
		Expect(products[0].Name).To(Equal("Desk 50% Lamp"))

		Expect(call(http.MethodGet, "/products?category="+category+"&minPrice=30&maxPrice=40", nil, "", &products)).To(Equal(http.StatusOK))
		Expect(products).To(HaveLen(1))
		Expect(products[0].Name).To(Equal("Desk Fan"))

		var categories []struct {
			Name string `json:"name"`
		}
		Expect(call(http.MethodGet, "/user/categories", nil, "", &categories)).To(Equal(http.StatusOK))
		Expect(categories).To(ContainElement(HaveField("Name", category)))
	})
})

var _ = Describe("Pricing", func() {
	It("quotes prices by product type and location", func() {
		var quote struct {
			FinalPrice float64 `json:"finalPrice"`
		}
		Expect(call(http.MethodPost, "/calculate-price", map[string]string{
			"productType": "electronics", "location": "New York",
		}, "", &quote)).To(Equal(http.StatusOK))
		Expect(quote.FinalPrice).To(BeNumerically("==", 765))
	})

	It("records delivery costs", func() {
		var delivery struct {
			ID        string  `json:"id"`
			TotalCost float64 `json:"total_cost"`
		}
		Expect(call(http.MethodPost, "/calculate", map[string]any{
			"region": "north", "distance_km": 10, "weight_kg": 2,
		}, "", &delivery)).To(Equal(http.StatusOK))
		Expect(delivery.TotalCost).To(BeNumerically("==", 28))

		var recent []struct {
			ID string `json:"id"`
		}
		Expect(call(http.MethodGet, "/data?limit=50", nil, "", &recent)).To(Equal(http.StatusOK))
		Expect(recent).To(ContainElement(HaveField("ID", delivery.ID)))
	})
})
