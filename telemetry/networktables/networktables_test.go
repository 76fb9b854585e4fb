package networktables

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/yams/logging"
)

func TestTable(t *testing.T) {
	inst := NewInstance()
	data := inst.Table("/Mechanisms/elevator/")
	test.That(t, data.Path(), test.ShouldEqual, "Mechanisms/elevator")
	test.That(t, data.Sub("motor").Path(), test.ShouldEqual, "Mechanisms/elevator/motor")

	test.That(t, data.SetDefault("kP", 4.0), test.ShouldBeNil)
	test.That(t, data.SetDefault("kP", 5.0), test.ShouldBeNil)
	v, ok := data.Get("kP")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 4.0)

	test.That(t, data.Put("kP", 6.0), test.ShouldBeNil)
	v, _ = data.Get("kP")
	test.That(t, v, test.ShouldEqual, 6.0)

	err := data.Put("kP", true)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot write bool")

	test.That(t, data.Put("name", "elevator"), test.ShouldNotBeNil)
	test.That(t, data.Put("stages", "3"), test.ShouldNotBeNil)
	test.That(t, data.Put("kP", int32(7)), test.ShouldBeNil)
	v, _ = data.Get("kP")
	test.That(t, v, test.ShouldEqual, 7.0)
	test.That(t, data.Put("kP", uint8(6)), test.ShouldBeNil)

	test.That(t, data.Put("Motor Inverted", false), test.ShouldBeNil)
	test.That(t, inst.Keys(), test.ShouldResemble, []string{"Mechanisms/elevator/Motor Inverted", "Mechanisms/elevator/kP"})

	data.Unpublish("kP")
	_, ok = data.Get("kP")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestTableEntriesAreDirectChildren(t *testing.T) {
	inst := NewInstance()
	test.That(t, inst.Table("Mechanisms/elevator").Put("Rotor Position", 1.0), test.ShouldBeNil)
	test.That(t, inst.Table("Mechanisms/elevator/motor").Put("Output Voltage", 2.0), test.ShouldBeNil)
	test.That(t, inst.TableEntries("Mechanisms/elevator"), test.ShouldResemble, map[string]any{"Rotor Position": 1.0})
	test.That(t, len(inst.Entries()), test.ShouldEqual, 2)
}

func TestServer(t *testing.T) {
	inst := NewInstance()
	tuning := inst.Table("Tuning/elevator")
	test.That(t, tuning.SetDefault("kP", 4.0), test.ShouldBeNil)
	test.That(t, tuning.SetDefault("Motor Inverted", false), test.ShouldBeNil)

	srv := httptest.NewServer(NewServer(inst, logging.NewTestLogger(t)).Handler())
	defer srv.Close()

	put := func(path, body string) int {
		req, err := http.NewRequest(http.MethodPut, srv.URL+path, strings.NewReader(body))
		test.That(t, err, test.ShouldBeNil)
		resp, err := http.DefaultClient.Do(req)
		test.That(t, err, test.ShouldBeNil)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	test.That(t, put("/v1/tables/Tuning/elevator/kP", `{"value": 2.5}`), test.ShouldEqual, http.StatusNoContent)
	v, _ := tuning.Get("kP")
	test.That(t, v, test.ShouldEqual, 2.5)

	test.That(t, put("/v1/tables/Tuning/elevator/kP", `{"value": true}`), test.ShouldEqual, http.StatusConflict)
	test.That(t, put("/v1/tables/Tuning/elevator/kI", `{"value": 1}`), test.ShouldEqual, http.StatusNotFound)
	test.That(t, put("/v1/tables/Tuning/elevator/kP", `not json`), test.ShouldEqual, http.StatusBadRequest)

	resp, err := http.Get(srv.URL + "/v1/tables/Tuning/elevator")
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	var got map[string]any
	test.That(t, json.NewDecoder(resp.Body).Decode(&got), test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, map[string]any{"kP": 2.5, "Motor Inverted": false})

	resp2, err := http.Get(srv.URL + "/v1/entries")
	test.That(t, err, test.ShouldBeNil)
	defer resp2.Body.Close()
	var all map[string]any
	test.That(t, json.NewDecoder(resp2.Body).Decode(&all), test.ShouldBeNil)
	test.That(t, all, test.ShouldContainKey, "Tuning/elevator/kP")
}

func TestServerStartClose(t *testing.T) {
	srv := NewServer(NewInstance(), logging.NewTestLogger(t))
	test.That(t, srv.Addr(), test.ShouldBeNil)
	test.That(t, srv.Start("localhost:0"), test.ShouldBeNil)
	test.That(t, srv.Start("localhost:0"), test.ShouldNotBeNil)
	addr := srv.Addr()
	test.That(t, addr, test.ShouldNotBeNil)

	resp, err := http.Get("http://" + addr.String() + "/v1/entries")
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)

	test.That(t, srv.Close(), test.ShouldBeNil)
	test.That(t, srv.Close(), test.ShouldBeNil)
}
