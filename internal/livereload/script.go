package livereload

import "fmt"

// ReconnectInterval is how long the client waits before reconnecting, in
// milliseconds.
const ReconnectInterval = 3000

// ClientScript returns the <script> block that connects a preview page to
// the hub on port and reloads it on the "reload" message.
func ClientScript(port int) string {
	return fmt.Sprintf(`<script>
(function () {
  var scheme = window.location.protocol === "https:" ? "wss://" : "ws://";
  var host = window.location.hostname || "localhost";
  function connect() {
    var socket = new WebSocket(scheme + host + ":%d");
    socket.onmessage = function (event) {
      if (event.data === "reload") {
        window.location.reload();
      }
    };
    socket.onclose = function () {
      setTimeout(connect, %d);
    };
  }
  connect();
})();
</script>`, port, ReconnectInterval)
}
