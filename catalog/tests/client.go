package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/catalog/services"

	"github.com/go-chi/chi/v5"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	cookies  []*http.Cookie
	json     interface{}
	body     io.Reader
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
		headers:  nil,
		json:     nil,
		body:     nil,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Cookie(cookie *http.Cookie) *httpTestRequest {
	r.cookies = append(r.cookies, cookie)
	return r
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

type statusError struct {
	method   string
	endpoint string
	code     int
	body     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v request to endpoint %v returned status %d, content '%v'", e.method, e.endpoint, e.code, e.body)
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// statusCode returns the response code of a failed request, or 0 if err did not come
// from a response.
func statusCode(err error) int {
	var serr *statusError
	if errors.As(err, &serr) {
		return serr.code
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	}
	return 0
}

func (r *httpTestRequest) send() (*httptest.ResponseRecorder, error) {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return nil, fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
		r.Header("Content-Type", "application/json")
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	for k, v := range r.headers {
		req.Header.Add(k, v)
	}
	for _, cookie := range r.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	return w, nil
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	_, err := r.DoWithCookies(result)
	return err
}

func (r *httpTestRequest) DoWithCookies(result interface{}) ([]*http.Cookie, error) {
	w, err := r.send()
	if err != nil {
		return nil, err
	}

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		switch res.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, w.Body.String())
		case http.StatusForbidden:
			return nil, fmt.Errorf("%w: %v", ErrForbidden, w.Body.String())
		}
		return nil, &statusError{method: r.method, endpoint: r.endpoint, code: res.StatusCode, body: w.Body.String()}
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return nil, fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return res.Cookies(), nil
}

type client struct {
	api     chi.Router
	session *http.Cookie
}

func (c *client) request(method, endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, method, endpoint)
	if c.session != nil {
		return r.Cookie(c.session)
	}
	return r
}

func (c *client) Get(endpoint string) *httpTestRequest {
	return c.request("GET", endpoint)
}

func (c *client) Post(endpoint string) *httpTestRequest {
	return c.request("POST", endpoint)
}

func (c *client) Put(endpoint string) *httpTestRequest {
	return c.request("PUT", endpoint)
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	return c.request("DELETE", endpoint)
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

func (c *client) login(username, password string) error {
	body := map[string]string{"username": username, "password": password}

	var res loginResponse
	cookies, err := c.Post("/api/login").Json(body).DoWithCookies(&res)
	if err != nil {
		return err
	}

	for _, cookie := range cookies {
		if cookie.Name == auth.SessionCookieName {
			c.session = cookie
			return nil
		}
	}
	return fmt.Errorf("login response did not set a session cookie")
}

func (c *client) logout() error {
	cookies, err := c.Post("/api/logout").DoWithCookies(nil)
	if err != nil {
		return err
	}
	for _, cookie := range cookies {
		if cookie.Name == auth.SessionCookieName && cookie.MaxAge < 0 {
			c.session = nil
		}
	}
	return nil
}

type currentUser struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username"`
	Role          string `json:"role"`
}

func (c *client) currentUser() (currentUser, error) {
	var res currentUser
	err := c.Get("/api/user").Do(&res)
	return res, err
}

type userInfo struct {
	Id       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c *client) addUser(username, password, role string) (userInfo, error) {
	body := map[string]string{"username": username, "password": password, "role": role}

	var res userInfo
	err := c.Post("/api/users").Json(body).Do(&res)
	return res, err
}

func (c *client) listUsers() ([]userInfo, error) {
	var res []userInfo
	err := c.Get("/api/users").Do(&res)
	return res, err
}

func (c *client) deleteUser(userId uint) error {
	return c.Delete(fmt.Sprintf("/api/users/%d", userId)).Do(nil)
}

type product map[string]interface{}

func (p product) id() uint {
	id, _ := p["id"].(float64)
	return uint(id)
}

func (c *client) createProduct(values map[string]interface{}) (product, error) {
	var res product
	err := c.Post("/api/products").Json(values).Do(&res)
	return res, err
}

func (c *client) updateProduct(productId uint, values map[string]interface{}) (product, error) {
	var res product
	err := c.Put(fmt.Sprintf("/api/products/%d", productId)).Json(values).Do(&res)
	return res, err
}

func (c *client) getProduct(productId uint) (product, error) {
	var res product
	err := c.Get(fmt.Sprintf("/api/products/%d", productId)).Do(&res)
	return res, err
}

func (c *client) listProducts() ([]product, error) {
	var res []product
	err := c.Get("/api/products").Do(&res)
	return res, err
}

func (c *client) deleteProduct(productId uint) error {
	return c.Delete(fmt.Sprintf("/api/products/%d", productId)).Do(nil)
}

func (c *client) createOption(columnName, value string, isMultiValue *bool) (schema.ColumnOption, error) {
	body := map[string]interface{}{"column_name": columnName, "value": value}
	if isMultiValue != nil {
		body["is_multi_value"] = *isMultiValue
	}

	var res schema.ColumnOption
	err := c.Post("/api/column-options").Json(body).Do(&res)
	return res, err
}

func (c *client) groupedOptions() (map[string]services.GroupedOptions, error) {
	var res map[string]services.GroupedOptions
	err := c.Get("/api/column-options").Do(&res)
	return res, err
}

func (c *client) allOptions() ([]schema.ColumnOption, error) {
	var res []schema.ColumnOption
	err := c.Get("/api/column-options/all").Do(&res)
	return res, err
}

func (c *client) deleteOption(optionId uint) error {
	return c.Delete(fmt.Sprintf("/api/column-options/%d", optionId)).Do(nil)
}

func (c *client) deleteOptionByValue(columnName, value string) error {
	query := url.Values{"column_name": {columnName}, "value": {value}}
	return c.Delete("/api/column-options?" + query.Encode()).Do(nil)
}

func (c *client) filters() (map[string][]string, error) {
	var res map[string][]string
	err := c.Get("/api/filters").Do(&res)
	return res, err
}

type uploadResponse struct {
	Success    bool     `json:"success"`
	Url        string   `json:"url"`
	Filename   string   `json:"filename"`
	LinkedDocs []string `json:"linked_docs"`
}

func multipartBody(field, filename string, data []byte) (*bytes.Buffer, string, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

func (c *client) uploadDocument(productId uint, filename string, data []byte) (uploadResponse, error) {
	body, contentType, err := multipartBody("file", filename, data)
	if err != nil {
		return uploadResponse{}, err
	}

	var res uploadResponse
	err = c.Post(fmt.Sprintf("/api/dataset/%d/upload", productId)).Header("Content-Type", contentType).Body(body).Do(&res)
	return res, err
}

func (c *client) deleteDocument(productId uint, url string) ([]string, error) {
	var res struct {
		LinkedDocs []string `json:"linked_docs"`
	}
	err := c.Delete(fmt.Sprintf("/api/dataset/%d/documents", productId)).Json(map[string]string{"url": url}).Do(&res)
	return res.LinkedDocs, err
}

func (c *client) download(path string) ([]byte, error) {
	w, err := c.Get(path).send()
	if err != nil {
		return nil, err
	}
	if w.Code != http.StatusOK {
		return nil, &statusError{method: "GET", endpoint: path, code: w.Code, body: w.Body.String()}
	}
	return w.Body.Bytes(), nil
}
