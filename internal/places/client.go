// Package places wraps the Google Places API for the business lookup side
// of the product: find businesses, pull their phone numbers, feed outreach.
package places

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const baseURL = "https://maps.googleapis.com/maps/api/place"

type Client struct {
	APIKey string
	http   *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{APIKey: apiKey, http: &http.Client{}}
}

type Place struct {
	PlaceID string  `json:"place_id"`
	Name    string  `json:"name"`
	Address string  `json:"formatted_address"`
	Rating  float64 `json:"rating"`
}

type PlaceDetails struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name"`
	Address string `json:"formatted_address"`
	Phone   string `json:"formatted_phone_number"`
	Website string `json:"website"`
}

type searchResponse struct {
	Results []Place `json:"results"`
	Status  string  `json:"status"`
}

type detailsResponse struct {
	Result PlaceDetails `json:"result"`
	Status string       `json:"status"`
}

// TextSearch runs a free-text business query, e.g. "dentista pinheiros".
func (c *Client) TextSearch(query string) ([]Place, error) {
	u := fmt.Sprintf("%s/textsearch/json?query=%s&key=%s", baseURL, url.QueryEscape(query), c.APIKey)

	body, err := c.get(u)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places API status: %s", resp.Status)
	}
	return resp.Results, nil
}

// Details fetches a single place including its phone number.
func (c *Client) Details(placeID string) (*PlaceDetails, error) {
	u := fmt.Sprintf("%s/details/json?place_id=%s&fields=place_id,name,formatted_address,formatted_phone_number,website&key=%s",
		baseURL, url.QueryEscape(placeID), c.APIKey)

	body, err := c.get(u)
	if err != nil {
		return nil, err
	}

	var resp detailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("places API status: %s", resp.Status)
	}
	return &resp.Result, nil
}

func (c *Client) get(u string) ([]byte, error) {
	resp, err := c.http.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("places API error: %s - %s", resp.Status, string(body))
	}
	return body, nil
}
