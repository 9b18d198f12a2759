package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Location mirrors the API's position fix coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeoSample is the fix payload published to the broker.
type GeoSample struct {
	Location   Location  `json:"location"`
	CapturedAt time.Time `json:"captured_at"`
}

// Cities for realistic trip start points
var cities = []Location{
	{Lat: 3.1390, Lon: 101.6869},  // Kuala Lumpur
	{Lat: 1.3521, Lon: 103.8198},  // Singapore
	{Lat: -6.2088, Lon: 106.8456}, // Jakarta
	{Lat: 13.7563, Lon: 100.5018}, // Bangkok
	{Lat: 14.5995, Lon: 120.9842}, // Manila
	{Lat: 10.8231, Lon: 106.6297}, // Ho Chi Minh City
	{Lat: 51.5074, Lon: -0.1278},  // London
	{Lat: 48.8566, Lon: 2.3522},   // Paris
	{Lat: 40.7128, Lon: -74.0060}, // New York
	{Lat: 35.6762, Lon: 139.6503}, // Tokyo
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func randomStart() Location {
	return jitterLocation(cities[rand.Intn(len(cities))], 500)
}

// stepTowards advances the position by km in a roughly fixed heading,
// with a little lateral noise so the track looks like a real drive.
func stepTowards(pos Location, headingDeg, km float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(pos.Lat*math.Pi/180)
	meters := km * 1000
	dLat := meters * math.Cos(headingDeg*math.Pi/180) / latMetersPerDeg
	dLon := meters * math.Sin(headingDeg*math.Pi/180) / lonMetersPerDeg
	return jitterLocation(Location{Lat: pos.Lat + dLat, Lon: pos.Lon + dLon}, 10)
}

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(method, path string, payload, out interface{}) (int, error) {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *apiClient) login(username, password string) (string, error) {
	creds := map[string]string{"username": username, "password": password}

	// Register first; an existing account answers 409 and login proceeds.
	register := map[string]string{
		"username": username,
		"password": password,
		"email":    username + "@simulator.local",
	}
	if status, err := c.do(http.MethodPost, "/auth/register", register, nil); err != nil {
		return "", fmt.Errorf("register: %w", err)
	} else if status != http.StatusCreated && status != http.StatusConflict {
		return "", fmt.Errorf("register failed with status %d", status)
	}

	var loginResp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	status, err := c.do(http.MethodPost, "/auth/login", creds, &loginResp)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", status)
	}
	c.token = loginResp.Token
	return loginResp.User.ID, nil
}

func (c *apiClient) createVehicle() (string, error) {
	names := []string{"Delivery Van", "Family Car", "Cargo Lorry", "Pool Car"}
	categories := []string{"Car", "Van", "Lorry"}

	vehicle := map[string]string{
		"name":     names[rand.Intn(len(names))],
		"category": categories[rand.Intn(len(categories))],
	}
	var created struct {
		ID string `json:"id"`
	}
	status, err := c.do(http.MethodPost, "/vehicles", vehicle, &created)
	if err != nil {
		return "", fmt.Errorf("create vehicle: %w", err)
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("vehicle creation failed with status %d", status)
	}

	log.WithFields(log.Fields{
		"vehicle_id": created.ID,
		"name":       vehicle["name"],
		"category":   vehicle["category"],
	}).Info("Created vehicle")
	return created.ID, nil
}

func connectBroker(brokerURL string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(fmt.Sprintf("carbon-simulator-%d", rand.Intn(100000))).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout: %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return client, nil
}

func publishFix(client mqtt.Client, userID string, fix GeoSample) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("carbon/%s/fixes", userID)
	token := client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout: %s", topic)
	}
	return token.Error()
}

// driveTrip runs one full trip: start tracking, publish fixes while
// "driving", stop, then report the fuel burned so the trip is recorded.
func driveTrip(api *apiClient, broker mqtt.Client, userID, vehicleID string, ticks int, interval time.Duration) error {
	start := map[string]string{"vehicle_id": vehicleID}
	if status, err := api.do(http.MethodPost, "/trips/start", start, nil); err != nil {
		return fmt.Errorf("start trip: %w", err)
	} else if status != http.StatusOK {
		return fmt.Errorf("start trip failed with status %d", status)
	}

	pos := randomStart()
	heading := rand.Float64() * 360
	speedKmh := 30 + rand.Float64()*30

	for i := 0; i < ticks; i++ {
		speedKmh += (rand.Float64()*2 - 1) * 3
		if speedKmh < 15 {
			speedKmh = 15
		}
		if speedKmh > 90 {
			speedKmh = 90
		}
		pos = stepTowards(pos, heading, speedKmh*interval.Seconds()/3600)

		fix := GeoSample{Location: pos, CapturedAt: time.Now()}
		if err := publishFix(broker, userID, fix); err != nil {
			log.WithError(err).Warn("Failed to publish fix")
		}
		time.Sleep(interval)
	}

	var stopResp struct {
		DistanceKm float64 `json:"distance_km"`
	}
	if status, err := api.do(http.MethodPost, "/trips/stop", nil, &stopResp); err != nil {
		return fmt.Errorf("stop trip: %w", err)
	} else if status != http.StatusOK {
		return fmt.Errorf("stop trip failed with status %d", status)
	}

	// Rough consumption of 8 litres per 100 km.
	litre := stopResp.DistanceKm * 0.08
	if litre < 0.1 {
		litre = 0.1
	}
	fuelTypes := []string{"Petrol", "Diesel"}
	fuel := map[string]interface{}{
		"fuel_litre": litre,
		"fuel_type":  fuelTypes[rand.Intn(len(fuelTypes))],
	}
	if status, err := api.do(http.MethodPost, "/trips/fuel", fuel, nil); err != nil {
		return fmt.Errorf("record fuel: %w", err)
	} else if status != http.StatusCreated {
		return fmt.Errorf("record fuel failed with status %d", status)
	}

	log.WithFields(log.Fields{
		"distance_km": stopResp.DistanceKm,
		"fuel_litre":  litre,
	}).Info("Trip recorded")
	return nil
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	brokerURL := os.Getenv("MQTT_BROKER_URL")
	if brokerURL == "" {
		brokerURL = "tcp://localhost:1883"
	}
	username := os.Getenv("SIM_USERNAME")
	if username == "" {
		username = "simdriver"
	}
	password := os.Getenv("SIM_PASSWORD")
	if password == "" {
		password = "simulator-pass-1"
	}

	trips := 3
	if v := os.Getenv("SIM_TRIPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			trips = n
		}
	}
	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}
	ticks := 10
	if v := os.Getenv("SIM_TICKS_PER_TRIP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 2 {
			ticks = n
		}
	}

	log.WithFields(log.Fields{
		"api_url":  apiURL,
		"broker":   brokerURL,
		"trips":    trips,
		"interval": interval,
	}).Info("Starting trip simulation")

	api := newAPIClient(apiURL)
	userID, err := api.login(username, password)
	if err != nil {
		log.WithError(err).Fatal("Failed to authenticate")
	}
	log.WithField("user_id", userID).Info("Authenticated")

	vehicleID, err := api.createVehicle()
	if err != nil {
		log.WithError(err).Fatal("Failed to create vehicle")
	}

	broker, err := connectBroker(brokerURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MQTT broker")
	}
	defer broker.Disconnect(250)

	for i := 0; i < trips; i++ {
		if err := driveTrip(api, broker, userID, vehicleID, ticks, interval); err != nil {
			log.WithError(err).Error("Trip failed")
		}
		time.Sleep(interval)
	}

	log.Info("Simulation finished")
}
