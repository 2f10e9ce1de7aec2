package auth

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/utils"
)

// CanMutateCatalog reports whether the identity may create, update or delete products,
// users, column options and documents.
func CanMutateCatalog(identity Identity) bool {
	return identity.IsAdmin()
}

// VisibleFields returns the product columns the identity is allowed to see.
func VisibleFields(identity Identity) schema.FieldSet {
	if identity.IsAdmin() {
		return schema.AllFields()
	}
	return schema.PublicFields()
}

func AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r)

			if !identity.IsAuthenticated() {
				utils.WriteError(w, "authentication required", http.StatusUnauthorized)
				return
			}

			if !CanMutateCatalog(identity) {
				utils.WriteError(w, "admin access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// OriginCheck rejects cross-site state changing requests. Requests without Origin and
// Referer headers are not browser form posts and are let through.
func OriginCheck(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed = append(allowed, strings.TrimRight(strings.ToLower(origin), "/"))
	}

	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				if referer := r.Header.Get("Referer"); referer != "" {
					if u, err := url.Parse(referer); err == nil {
						origin = u.Scheme + "://" + u.Host
					}
				}
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			u, err := url.Parse(origin)
			if err == nil && (strings.EqualFold(u.Host, r.Host) || slices.Contains(allowed, strings.ToLower(origin))) {
				next.ServeHTTP(w, r)
				return
			}

			utils.WriteError(w, "cross-origin request rejected", http.StatusForbidden)
		}
		return http.HandlerFunc(hfn)
	}
}
